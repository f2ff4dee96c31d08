package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/message"

	"flight-tui/binding"
	"flight-tui/command"
	"flight-tui/i18n"
	"flight-tui/loop"
	"flight-tui/model"
	"flight-tui/player"
	"flight-tui/vis"
)

const (
	callTimeout     = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

var (
	errUnknownFlight = errors.New("unknown flight")
	errNoCommand     = errors.New("command not available")
	errClosed        = errors.New("server shutting down")
)

// getRealIP extracts the real client IP from the request.
// It checks headers in the following priority order:
// 1. CF-Connecting-IP (Cloudflare)
// 2. X-Real-IP (nginx)
// 3. X-Forwarded-For (standard proxy, first IP in the list)
// 4. RemoteAddr (fallback)
func getRealIP(r *http.Request) string {
	// Cloudflare: CF-Connecting-IP is the most reliable when using Cloudflare
	if cfIP := r.Header.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	// nginx: X-Real-IP is typically set by nginx
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	// Standard proxy: X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	// The first IP is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Fallback: use RemoteAddr (strip port if present)
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // Return as-is if parsing fails
	}
	return ip
}

// Options configures a Server
type Options struct {
	Port     int
	Catalog  model.Catalog
	Registry *player.Registry
	Loop     *loop.Loop
}

// entry is one flight's command set and bindings
type entry struct {
	flight model.Flight
	set    *command.Set
	ctrl   *binding.Controller
	zoom   *binding.LazyResource
}

// Server exposes the flight commands over HTTP. Everything behind the
// handlers lives on the loop and is reached through loop.Call.
type Server struct {
	port     int
	loop     *loop.Loop
	registry *player.Registry
	catalog  model.Catalog
	binder   *binding.Binder
	factory  binding.ResourceFactory
	hub      *Hub

	// loop-confined
	entries map[string]*entry
	order   []string
	views   map[string]model.Extent
	closed  bool
}

// NewServer creates a server and binds every flight of the catalog. It must
// be called before the loop starts running.
func NewServer(opts Options) *Server {
	s := &Server{
		port:     opts.Port,
		loop:     opts.Loop,
		registry: opts.Registry,
		catalog:  opts.Catalog,
		hub:      NewHub(),
		entries:  make(map[string]*entry),
		views:    make(map[string]model.Extent),
	}
	s.binder = binding.NewBinder(opts.Registry, opts.Loop,
		binding.WithStateHook(s.stateChanged),
		binding.WithErrorHook(s.fail),
	)

	s.factory = vis.Factory(opts.Catalog, s)
	for _, f := range opts.Catalog {
		s.add(f)
	}
	return s
}

// add binds f and lists it in catalog order. Loop-confined.
func (s *Server) add(f model.Flight) *entry {
	set := command.NewSet()
	zoom := s.binder.BindLazyResource(f.Name, s.factory)
	set.Insert(zoom.Command())
	e := &entry{
		flight: f,
		set:    set,
		ctrl:   s.binder.Attach(f.Name, set),
		zoom:   zoom,
	}
	s.entries[f.Name] = e

	var order []string
	for _, c := range s.catalog {
		if _, ok := s.entries[c.Name]; ok {
			order = append(order, c.Name)
		}
	}
	s.order = order
	return e
}

// remove disposes the entry called name. Loop-confined.
func (s *Server) remove(name string) bool {
	e, ok := s.entries[name]
	if !ok {
		return false
	}
	e.ctrl.Dispose()
	e.zoom.Dispose()
	delete(s.entries, name)
	delete(s.views, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/flights", s.handleFlights)
	mux.HandleFunc("PUT /api/flights/{name}", s.handleAdd)
	mux.HandleFunc("DELETE /api/flights/{name}", s.handleRemove)
	mux.HandleFunc("POST /api/flights/{name}/commands/{command}", s.handleCommand)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	return mux
}

// Start runs the loop and the HTTP server until ctx is done
func (s *Server) Start(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go s.loop.Run(loopCtx)

	addr := fmt.Sprintf(":%d", s.port)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("📡 server started: http://localhost%s", addr)
	log.Printf("   flights: curl http://localhost%s/api/flights", addr)
	log.Printf("   play:    curl -X POST http://localhost%s/api/flights/%s/commands/%s", addr, model.DefaultFlight, binding.ToggleName)
	log.Printf("   events:  curl -N http://localhost%s/api/events", addr)

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Printf("❌ shutdown: %v", serr)
	}
	if _, cerr := loop.Call(shutdownCtx, s.loop, func() struct{} {
		s.close()
		return struct{}{}
	}); cerr != nil {
		log.Printf("❌ release sessions: %v", cerr)
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// close disposes every binding and destroys every session. Loop-confined.
func (s *Server) close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, name := range append([]string(nil), s.order...) {
		s.remove(name)
	}
	s.registry.Close()
	log.Printf("🗑️ all sessions released")
}

// stateChanged is the binder's state hook
func (s *Server) stateChanged(entityID string, st player.State) {
	s.hub.Broadcast(Event{Type: "state", Flight: entityID, State: st.String()})
}

// fail is the binder's error hook
func (s *Server) fail(entityID string, err error) {
	log.Printf("❌ %s: %v", entityID, err)
	s.hub.Broadcast(Event{Type: "error", Flight: entityID, Error: err.Error()})
}

// SetView implements vis.Viewport for remote clients: the extent is kept
// and announced.
func (s *Server) SetView(flight string, extent model.Extent) error {
	s.views[flight] = extent
	s.hub.Broadcast(Event{Type: "view", Flight: flight, Extent: extent})
	return nil
}

// CommandView is a command as rendered for a client
type CommandView struct {
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Title    string `json:"title"`
	TitleKey string `json:"titleKey"`
	Active   bool   `json:"active"`
}

// FlightView is a flight with its current commands
type FlightView struct {
	Name       string        `json:"name"`
	Title      string        `json:"title"`
	State      string        `json:"state"`
	Pending    bool          `json:"pending"`
	Owned      bool          `json:"owned"`
	Loop       bool          `json:"loop"`
	Duration   time.Duration `json:"duration"`
	PathLength float64       `json:"pathLength"`
	Commands   []CommandView `json:"commands"`
}

// StatusView is the body of /api/status
type StatusView struct {
	Sessions []player.SessionStatus  `json:"sessions"`
	Views    map[string]model.Extent `json:"views"`
	Clients  int                     `json:"clients"`
}

// flightView renders e. Loop-confined.
func (s *Server) flightView(e *entry, p *message.Printer) FlightView {
	state := "idle"
	if sess := e.ctrl.Session(); sess != nil {
		state = sess.State().String()
	}

	cmds := e.set.Commands()
	views := make([]CommandView, 0, len(cmds))
	for _, c := range cmds {
		views = append(views, CommandView{
			Name:     c.Name,
			Icon:     c.Icon,
			Title:    p.Sprintf(c.Title),
			TitleKey: c.Title,
			Active:   c.Active,
		})
	}

	return FlightView{
		Name:       e.flight.Name,
		Title:      e.flight.Title,
		State:      state,
		Pending:    e.ctrl.Pending(),
		Owned:      e.ctrl.Owned(),
		Loop:       e.flight.Loop,
		Duration:   e.flight.Duration(),
		PathLength: e.flight.PathLength(),
		Commands:   views,
	}
}

// handleFlights lists every flight with its localized commands
func (s *Server) handleFlights(w http.ResponseWriter, r *http.Request) {
	printer := i18n.Printer(i18n.ResolveTag(r))

	flights, err := call(s, r, func() []FlightView {
		out := make([]FlightView, 0, len(s.order))
		for _, name := range s.order {
			out = append(out, s.flightView(s.entries[name], printer))
		}
		return out
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, flights)
}

type commandResult struct {
	view FlightView
	err  error
}

// handleCommand invokes a command of a flight
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	cmdName := r.PathValue("command")
	log.Printf("📥 request: %s %s (from %s)", r.Method, r.URL.Path, getRealIP(r))

	printer := i18n.Printer(i18n.ResolveTag(r))
	res, err := call(s, r, func() commandResult {
		if s.closed {
			return commandResult{err: errClosed}
		}
		e, ok := s.entries[name]
		if !ok {
			return commandResult{err: errUnknownFlight}
		}
		if !e.set.Invoke(cmdName) {
			return commandResult{err: errNoCommand}
		}
		return commandResult{view: s.flightView(e, printer)}
	})

	switch {
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(res.err, errClosed):
		http.Error(w, res.err.Error(), http.StatusServiceUnavailable)
	case errors.Is(res.err, errUnknownFlight):
		http.Error(w, fmt.Sprintf("%v: %s", res.err, name), http.StatusNotFound)
	case errors.Is(res.err, errNoCommand):
		http.Error(w, fmt.Sprintf("%v: %s", res.err, cmdName), http.StatusConflict)
	default:
		writeJSON(w, http.StatusAccepted, res.view)
	}
}

type addResult struct {
	view    FlightView
	created bool
	err     error
}

// handleAdd lists a catalog flight again with a fresh binding. Adding a
// flight that is already listed returns it unchanged.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	log.Printf("📥 request: %s %s (from %s)", r.Method, r.URL.Path, getRealIP(r))

	printer := i18n.Printer(i18n.ResolveTag(r))
	res, err := call(s, r, func() addResult {
		if s.closed {
			return addResult{err: errClosed}
		}
		if e, ok := s.entries[name]; ok {
			return addResult{view: s.flightView(e, printer)}
		}
		f, ok := s.catalog.Flight(name)
		if !ok {
			return addResult{err: errUnknownFlight}
		}
		e := s.add(f)
		s.hub.Broadcast(Event{Type: "added", Flight: name})
		return addResult{view: s.flightView(e, printer), created: true}
	})

	switch {
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(res.err, errClosed):
		http.Error(w, res.err.Error(), http.StatusServiceUnavailable)
	case errors.Is(res.err, errUnknownFlight):
		http.Error(w, fmt.Sprintf("%v: %s", res.err, name), http.StatusNotFound)
	case res.created:
		log.Printf("➕ flight listed: %s", name)
		writeJSON(w, http.StatusCreated, res.view)
	default:
		writeJSON(w, http.StatusOK, res.view)
	}
}

// handleRemove unlists a flight. Its session is destroyed if this server
// created it.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	log.Printf("📥 request: %s %s (from %s)", r.Method, r.URL.Path, getRealIP(r))

	res, err := call(s, r, func() error {
		if s.closed {
			return errClosed
		}
		if !s.remove(name) {
			return errUnknownFlight
		}
		s.hub.Broadcast(Event{Type: "removed", Flight: name})
		return nil
	})

	switch {
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(res, errClosed):
		http.Error(w, res.Error(), http.StatusServiceUnavailable)
	case errors.Is(res, errUnknownFlight):
		http.Error(w, fmt.Sprintf("%v: %s", res, name), http.StatusNotFound)
	default:
		log.Printf("➖ flight removed: %s", name)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleStatus returns the live sessions and the last views
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := call(s, r, func() StatusView {
		views := make(map[string]model.Extent, len(s.views))
		for k, v := range s.views {
			views[k] = v
		}
		return StatusView{
			Sessions: s.registry.Status(),
			Views:    views,
			Clients:  s.hub.Len(),
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleEvents streams state changes, errors and views
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	clientID := uuid.NewString()
	log.Printf("🎵 client connected: %s (from %s)", clientID, getRealIP(r))

	err := s.hub.Serve(w, r, clientID)
	switch {
	case errors.Is(err, ErrHubClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case errors.Is(err, ErrNoStreaming):
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	case errors.Is(err, ErrDuplicateClient):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		log.Printf("❌ event stream error [%s]: %v", clientID, err)
		return
	}

	log.Printf("👋 client disconnected: %s", clientID)
}

// call runs fn on the loop, bounded by the request and callTimeout
func call[T any](s *Server, r *http.Request, fn func() T) (T, error) {
	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()
	return loop.Call(ctx, s.loop, fn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ encode response: %v", err)
	}
}

package tui

import (
	"context"
	"log"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"flight-tui/binding"
	"flight-tui/command"
	"flight-tui/config"
	"flight-tui/i18n"
	"flight-tui/loop"
	"flight-tui/model"
	"flight-tui/player"
	"flight-tui/vis"
)

// 自动播放获取会话的超时
const autoPlayTimeout = 5 * time.Second

// Chime 状态变化提示音，player.Cue 实现了该接口
type Chime interface {
	Play(player.State)
}

// Options TUI 依赖
type Options struct {
	Catalog    model.Catalog
	Registry   *player.Registry
	Loop       *loop.Loop
	Config     config.Config
	Chime      Chime                     // 可为空
	Logger     *log.Logger               // 为空时使用 log.Default()
	SaveConfig func(config.Config) error // 为空时使用 config.Save
	// 为空时使用 config.SaveLastFlight
	SaveLastFlight func(name string) error
}

// Entry 列表中的一条路线及其命令
type Entry struct {
	Flight     model.Flight
	Commands   *command.Set
	Controller *binding.Controller
	Zoom       *binding.LazyResource
}

// Dispose 释放路线的绑定
func (e *Entry) Dispose() {
	e.Controller.Dispose()
	e.Zoom.Dispose()
}

// viewState 当前地图视野
type viewState struct {
	flight string
	extent model.Extent
}

// SharedState 共享状态，只在事件循环（Update）中访问
type SharedState struct {
	Entries  []*Entry
	Registry *player.Registry

	cfg            config.Config
	saveConfig     func(config.Config) error
	saveLastFlight func(string) error
	exec           loop.Executor
	binder         *binding.Binder
	catalog        model.Catalog
	factory        binding.ResourceFactory
	removed        []string // 已移除的路线，最近移除的在最后
	chime          Chime
	logger         *log.Logger

	lang    language.Tag
	printer *message.Printer

	view          *viewState
	statusMessage string
	errorMessage  string
	closed        bool
}

func newSharedState(opts Options) *SharedState {
	s := &SharedState{
		Registry:       opts.Registry,
		cfg:            opts.Config,
		saveConfig:     opts.SaveConfig,
		saveLastFlight: opts.SaveLastFlight,
		exec:           opts.Loop,
		catalog:        opts.Catalog,
		chime:          opts.Chime,
		logger:         opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.saveConfig == nil {
		s.saveConfig = config.Save
	}
	if s.saveLastFlight == nil {
		s.saveLastFlight = config.SaveLastFlight
	}

	tag, _ := i18n.Parse(opts.Config.Language)
	s.setLanguage(tag)

	s.binder = binding.NewBinder(opts.Registry, opts.Loop,
		binding.WithLogger(s.logger),
		binding.WithStateHook(s.stateChanged),
		binding.WithErrorHook(s.fail),
	)

	s.factory = vis.Factory(opts.Catalog, s)
	for _, f := range opts.Catalog {
		s.Entries = append(s.Entries, s.newEntry(f))
	}
	return s
}

// newEntry 为路线创建命令集并绑定播放和缩放
func (s *SharedState) newEntry(f model.Flight) *Entry {
	set := command.NewSet()
	zoom := s.binder.BindLazyResource(f.Name, s.factory)
	set.Insert(zoom.Command())
	return &Entry{
		Flight:     f,
		Commands:   set,
		Controller: s.binder.Attach(f.Name, set),
		Zoom:       zoom,
	}
}

// RemoveEntry 从列表中移除路线并释放其绑定，返回是否移除
func (s *SharedState) RemoveEntry(name string) bool {
	if s.closed {
		return false
	}
	for i, e := range s.Entries {
		if e.Flight.Name != name {
			continue
		}
		e.Dispose()
		s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
		s.removed = append(s.removed, name)
		if s.view != nil && s.view.flight == name {
			s.view = nil
		}
		s.statusMessage = s.t("tui.removed", e.Flight.Title)
		s.logger.Printf("entry %s removed", name)
		return true
	}
	return false
}

// AddEntry 将路线重新加入列表（按目录顺序），返回新列表项
func (s *SharedState) AddEntry(name string) (*Entry, bool) {
	if s.closed || s.entry(name) != nil {
		return nil, false
	}
	f, ok := s.catalog.Flight(name)
	if !ok {
		return nil, false
	}

	e := s.newEntry(f)
	at := len(s.Entries)
	for i, existing := range s.Entries {
		if s.catalog.Index(existing.Flight.Name) > s.catalog.Index(name) {
			at = i
			break
		}
	}
	s.Entries = append(s.Entries, nil)
	copy(s.Entries[at+1:], s.Entries[at:])
	s.Entries[at] = e

	for i := len(s.removed) - 1; i >= 0; i-- {
		if s.removed[i] == name {
			s.removed = append(s.removed[:i], s.removed[i+1:]...)
			break
		}
	}
	s.statusMessage = s.t("tui.added", f.Title)
	s.logger.Printf("entry %s added", name)
	return e, true
}

// RestoreEntry 恢复最近移除的路线
func (s *SharedState) RestoreEntry() (*Entry, bool) {
	if len(s.removed) == 0 {
		s.statusMessage = s.t("tui.noRemoved")
		return nil, false
	}
	return s.AddEntry(s.removed[len(s.removed)-1])
}

func (s *SharedState) index(name string) int {
	for i, e := range s.Entries {
		if e.Flight.Name == name {
			return i
		}
	}
	return -1
}

func (s *SharedState) setLanguage(tag language.Tag) {
	s.lang = tag
	s.printer = i18n.Printer(tag)
	s.cfg.Language = tag.String()
}

func (s *SharedState) t(key string, args ...any) string {
	return s.printer.Sprintf(key, args...)
}

func (s *SharedState) entry(name string) *Entry {
	for _, e := range s.Entries {
		if e.Flight.Name == name {
			return e
		}
	}
	return nil
}

func (s *SharedState) title(name string) string {
	if f, ok := s.catalog.Flight(name); ok && f.Title != "" {
		return f.Title
	}
	return name
}

// stateChanged 绑定层回调：记录上次播放的路线并播放提示音
func (s *SharedState) stateChanged(entityID string, st player.State) {
	if st == player.StatePlaying && s.cfg.LastFlight != entityID {
		s.cfg.LastFlight = entityID
		save := s.saveLastFlight
		go func() {
			if err := save(entityID); err != nil {
				s.logger.Printf("save last flight: %v", err)
			}
		}()
	}
	if s.chime != nil {
		s.chime.Play(st)
	}
}

// fail 绑定层回调：显示错误
func (s *SharedState) fail(entityID string, err error) {
	s.errorMessage = s.t("tui.error", s.title(entityID), err)
}

// SetView 实现 vis.Viewport
func (s *SharedState) SetView(flight string, extent model.Extent) error {
	s.view = &viewState{flight: flight, extent: extent}
	km := 0.0
	if f, ok := s.catalog.Flight(flight); ok {
		km = f.PathLength() / 1000
	}
	s.statusMessage = s.t("tui.view", s.title(flight), extent, km)
	return nil
}

// autoPlay 直接通过会话注册表继续播放，列表项通过广播接管会话
func (s *SharedState) autoPlay(name string) {
	reg := s.Registry
	loop.Async(s.exec, func() (player.Acquisition, error) {
		ctx, cancel := context.WithTimeout(context.Background(), autoPlayTimeout)
		defer cancel()
		return reg.Acquire(ctx, name)
	}, func(acq player.Acquisition, err error) {
		if err != nil {
			s.fail(name, err)
			return
		}
		if s.closed {
			if acq.Created {
				acq.Session.Stop()
				acq.Session.Destroy()
			}
			return
		}
		acq.Session.Play()
		s.statusMessage = s.t("tui.autoplay", s.title(name))
	})
}

// Shutdown 释放所有绑定、关闭注册表并保存配置，可重复调用
func (s *SharedState) Shutdown() {
	if s.closed {
		return
	}
	s.closed = true

	for _, e := range s.Entries {
		e.Dispose()
	}
	s.Registry.Close()

	if err := s.saveConfig(s.cfg); err != nil {
		s.logger.Printf("save config: %v", err)
	}
}

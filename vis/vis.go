// Package vis builds the on-demand visualization of a flight: its extent, its
// sampled ground track and a small text rendering of it.
package vis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flight-tui/binding"
	"flight-tui/model"
)

var (
	ErrDestroyed     = errors.New("visualization destroyed")
	ErrUnknownFlight = errors.New("unknown flight")
	ErrNoViewport    = errors.New("no viewport")
)

// Viewport is whatever shows the map. Hosts implement it.
type Viewport interface {
	SetView(flight string, extent model.Extent) error
}

// ViewportFunc adapts a function to Viewport.
type ViewportFunc func(flight string, extent model.Extent) error

func (f ViewportFunc) SetView(flight string, extent model.Extent) error { return f(flight, extent) }

// Source resolves flights by name. model.Catalog satisfies it.
type Source interface {
	Flight(name string) (model.Flight, bool)
}

// Point is a sampled position on the ground track.
type Point struct {
	Lon, Lat float64
}

// samplesPerSegment controls how finely each leg between two anchors is
// sampled.
const samplesPerSegment = 16

// Visualization is the lazily built resource behind the zoom command.
// New may run on any goroutine; the methods belong to the loop.
type Visualization struct {
	flight     model.Flight
	viewport   Viewport
	extent     model.Extent
	pathLength float64
	track      []Point
	destroyed  bool
}

var _ binding.Resource = (*Visualization)(nil)

// New samples the ground track of flight. It gives up with ctx's error if
// ctx ends first.
func New(ctx context.Context, flight model.Flight, viewport Viewport) (*Visualization, error) {
	if viewport == nil {
		return nil, ErrNoViewport
	}
	if err := flight.Validate(); err != nil {
		return nil, err
	}

	anchors := flight.Anchors
	if flight.Loop {
		anchors = append(anchors[:len(anchors):len(anchors)], anchors[0])
	}

	track := make([]Point, 0, (len(anchors)-1)*samplesPerSegment+1)
	for i := 1; i < len(anchors); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, b := anchors[i-1], anchors[i]
		for s := 0; s < samplesPerSegment; s++ {
			f := float64(s) / samplesPerSegment
			track = append(track, Point{
				Lon: a.Lon + (b.Lon-a.Lon)*f,
				Lat: a.Lat + (b.Lat-a.Lat)*f,
			})
		}
	}
	last := anchors[len(anchors)-1]
	track = append(track, Point{Lon: last.Lon, Lat: last.Lat})

	return &Visualization{
		flight:     flight,
		viewport:   viewport,
		extent:     flight.Extent(),
		pathLength: flight.PathLength(),
		track:      track,
	}, nil
}

// Factory adapts New to the binding package.
func Factory(src Source, viewport Viewport) binding.ResourceFactory {
	return func(ctx context.Context, entityID string) (binding.Resource, error) {
		flight, ok := src.Flight(entityID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFlight, entityID)
		}
		v, err := New(ctx, flight, viewport)
		if err != nil {
			return nil, fmt.Errorf("visualize %s: %w", entityID, err)
		}
		return v, nil
	}
}

func (v *Visualization) Flight() model.Flight { return v.flight }
func (v *Visualization) Extent() model.Extent { return v.extent }
func (v *Visualization) PathLength() float64  { return v.pathLength }
func (v *Visualization) Track() []Point       { return v.track }
func (v *Visualization) Destroyed() bool      { return v.destroyed }

// Focus moves the viewport to the flight's extent.
func (v *Visualization) Focus() error {
	if v.destroyed {
		return ErrDestroyed
	}
	return v.viewport.SetView(v.flight.Name, v.extent)
}

// Destroy releases the visualization. Later calls do nothing.
func (v *Visualization) Destroy() {
	if v.destroyed {
		return
	}
	v.destroyed = true
	v.track = nil
}

// Render draws the ground track into a width x height character grid, north
// up. The first anchor is marked with 'o'.
func (v *Visualization) Render(width, height int) []string {
	if v.destroyed || width < 2 || height < 2 || len(v.track) == 0 {
		return nil
	}

	grid := make([][]rune, height)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", width))
	}

	e := v.extent
	spanLon := e.MaxLon - e.MinLon
	spanLat := e.MaxLat - e.MinLat
	cell := func(p Point) (int, int) {
		x, y := width/2, height/2
		if spanLon > 0 {
			x = int((p.Lon - e.MinLon) / spanLon * float64(width-1))
		}
		if spanLat > 0 {
			y = int((e.MaxLat - p.Lat) / spanLat * float64(height-1))
		}
		return x, y
	}

	for _, p := range v.track {
		x, y := cell(p)
		grid[y][x] = '·'
	}
	x, y := cell(v.track[0])
	grid[y][x] = 'o'

	lines := make([]string, height)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return lines
}

package binding

import (
	"context"

	"flight-tui/command"
	"flight-tui/loop"
)

// Resource is something expensive derived from an entity, built on first use.
type Resource interface {
	Focus() error
	Destroy()
}

// ResourceFactory builds the resource for entityID. It runs off the loop.
type ResourceFactory func(ctx context.Context, entityID string) (Resource, error)

type lazyPhase int

const (
	lazyUnconstructed lazyPhase = iota
	lazyConstructing
	lazyConstructed
	lazyDisposed
)

// LazyResource binds a command to a resource that is constructed on the
// first invocation and reused afterwards.
type LazyResource struct {
	b        *Binder
	entityID string
	factory  ResourceFactory
	cmd      *command.Command

	phase    lazyPhase
	resource Resource
	cancel   context.CancelFunc
}

// BindLazyResource creates the zoom binding for entityID. Nothing is built
// until the command is invoked.
func (b *Binder) BindLazyResource(entityID string, factory ResourceFactory) *LazyResource {
	r := &LazyResource{
		b:        b,
		entityID: entityID,
		factory:  factory,
	}
	r.cmd = &command.Command{
		Name:   ZoomName,
		Icon:   IconZoom,
		Title:  TitleZoom,
		Invoke: r.Invoke,
	}
	return r
}

// Command returns the command that invokes the resource.
func (r *LazyResource) Command() *command.Command { return r.cmd }

// Constructed reports whether the resource has been built and not disposed.
func (r *LazyResource) Constructed() bool { return r.phase == lazyConstructed }

// Resource returns the built resource, or nil.
func (r *LazyResource) Resource() Resource {
	if r.phase != lazyConstructed {
		return nil
	}
	return r.resource
}

// Invoke focuses the resource, constructing it first if needed. Invocations
// while construction is running share the focus that follows it.
func (r *LazyResource) Invoke() {
	switch r.phase {
	case lazyConstructed:
		r.focus()
	case lazyUnconstructed:
		r.construct()
	}
}

func (r *LazyResource) construct() {
	r.phase = lazyConstructing
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	factory := r.factory
	entityID := r.entityID
	loop.Async(r.b.exec, func() (Resource, error) {
		return factory(ctx, entityID)
	}, r.constructed)
}

func (r *LazyResource) constructed(res Resource, err error) {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	if r.phase == lazyDisposed {
		if res != nil {
			res.Destroy()
		}
		return
	}
	if err == nil && res == nil {
		err = ErrNoResource
	}
	if err != nil {
		r.phase = lazyUnconstructed
		r.b.fail(r.entityID, err)
		return
	}

	r.resource = res
	r.phase = lazyConstructed
	r.focus()
}

func (r *LazyResource) focus() {
	if err := r.resource.Focus(); err != nil {
		r.b.fail(r.entityID, err)
	}
}

// Dispose releases the resource if one was built. Safe to call at any time
// and more than once.
func (r *LazyResource) Dispose() {
	if r.phase == lazyDisposed {
		return
	}
	r.phase = lazyDisposed

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.resource != nil {
		r.resource.Destroy()
		r.resource = nil
	}
}

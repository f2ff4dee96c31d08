package event

import (
	"reflect"
	"testing"
)

func TestEmitterOrder(t *testing.T) {
	var e Emitter[int]
	var got []string

	e.Subscribe(func(v int) { got = append(got, "a") })
	e.Subscribe(func(v int) { got = append(got, "b") })
	e.Emit(1)

	if want := []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEmitterUnsubscribeIdempotent(t *testing.T) {
	var e Emitter[string]
	calls := 0

	unsubscribe := e.Subscribe(func(string) { calls++ })
	other := e.Subscribe(func(string) {})
	unsubscribe()
	unsubscribe()

	if e.Len() != 1 {
		t.Fatalf("expected 1 listener, got %d", e.Len())
	}
	e.Emit("x")
	if calls != 0 {
		t.Fatalf("unsubscribed listener called %d times", calls)
	}

	other()
	if e.Len() != 0 {
		t.Fatalf("expected no listeners, got %d", e.Len())
	}
}

func TestEmitterUnsubscribeDuringEmit(t *testing.T) {
	var e Emitter[int]
	var second func()
	calls := 0

	e.Subscribe(func(int) { second() })
	second = e.Subscribe(func(int) { calls++ })

	e.Emit(1)
	if calls != 0 {
		t.Fatalf("listener removed mid-emit was still called")
	}
}

func TestEmitterSubscribeDuringEmit(t *testing.T) {
	var e Emitter[int]
	late := 0

	e.Subscribe(func(int) {
		e.Subscribe(func(int) { late++ })
	})

	e.Emit(1)
	if late != 0 {
		t.Fatalf("listener added mid-emit should wait for the next emit")
	}
	e.Emit(2)
	if late != 1 {
		t.Fatalf("expected late listener to run once, got %d", late)
	}
}

func TestEmitterClear(t *testing.T) {
	var e Emitter[int]
	e.Subscribe(func(int) { t.Fatal("cleared listener called") })
	e.Clear()
	e.Emit(1)
}

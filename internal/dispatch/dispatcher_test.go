package dispatch

import (
	"reflect"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type panicCounter struct {
	mu     sync.Mutex
	events []string
}

func (p *panicCounter) RecordListenerPanic(event string) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func TestDispatcher_DispatchOrder(t *testing.T) {
	d := New(zap.NewNop())

	var calls []string
	d.On(EventSuccess, func(p any) { calls = append(calls, "first:"+p.(string)) })
	d.On(EventSuccess, func(p any) { calls = append(calls, "second:"+p.(string)) })
	d.On(EventError, func(p any) { calls = append(calls, "error") })

	d.Dispatch(EventSuccess, "x")

	want := []string{"first:x", "second:x"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestDispatcher_DuplicateRegistration(t *testing.T) {
	d := New(nil)

	count := 0
	fn := func(any) { count++ }
	d.On(EventSuccess, fn)
	d.On(EventSuccess, fn)

	d.Dispatch(EventSuccess, nil)

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestDispatcher_Off(t *testing.T) {
	d := New(zap.NewNop())

	var calls []int
	id1 := d.On(EventSuccess, func(any) { calls = append(calls, 1) })
	d.On(EventSuccess, func(any) { calls = append(calls, 2) })

	d.Off(EventSuccess, id1)
	d.Off(EventSuccess, id1)
	d.Off(EventError, 999)
	d.Off("unknown", id1)

	d.Dispatch(EventSuccess, nil)

	if !reflect.DeepEqual(calls, []int{2}) {
		t.Errorf("calls = %v, want [2]", calls)
	}
	if got := d.Count(EventSuccess); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestDispatcher_NoListeners(t *testing.T) {
	d := New(zap.NewNop())
	d.Dispatch(EventError, "nobody listens")
}

func TestDispatcher_PanicIsolation(t *testing.T) {
	d := New(zap.NewNop())
	counter := &panicCounter{}
	d.SetPanicRecorder(counter)

	reached := false
	d.On(EventError, func(any) { panic("boom") })
	d.On(EventError, func(any) { reached = true })

	d.Dispatch(EventError, nil)

	if !reached {
		t.Error("listener after a panicking one should still run")
	}
	if !reflect.DeepEqual(counter.events, []string{EventError}) {
		t.Errorf("recorded panics = %v", counter.events)
	}
}

func TestDispatcher_OffInsideListener(t *testing.T) {
	d := New(zap.NewNop())

	count := 0
	var id ListenerID
	id = d.On(EventSuccess, func(any) {
		count++
		d.Off(EventSuccess, id)
	})

	d.Dispatch(EventSuccess, nil)
	d.Dispatch(EventSuccess, nil)

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestDispatcher_Concurrent(t *testing.T) {
	d := New(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := d.On(EventSuccess, func(any) {})
				d.Dispatch(EventSuccess, j)
				d.Off(EventSuccess, id)
			}
		}()
	}
	wg.Wait()

	if got := d.Count(EventSuccess); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

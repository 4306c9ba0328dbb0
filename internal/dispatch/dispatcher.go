package dispatch

import (
	"sync"

	"go.uber.org/zap"
)

const (
	EventSuccess = "success"
	EventError   = "error"
)

type Listener func(payload any)

// ListenerID возвращается из On, по нему слушателя снимают через Off.
// Функции в Go несравнимы, поэтому снимаем по id, а не по колбэку.
type ListenerID uint64

type registration struct {
	id ListenerID
	fn Listener
}

// PanicRecorder - то, что считает упавших слушателей (metrics.Metrics).
type PanicRecorder interface {
	RecordListenerPanic(event string)
}

// Dispatcher - синхронная шина событий, слушатели вызываются в порядке регистрации.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]registration
	nextID    ListenerID
	logger    *zap.Logger
	panics    PanicRecorder
}

func New(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		listeners: make(map[string][]registration),
		logger:    logger,
	}
}

func (d *Dispatcher) SetPanicRecorder(r PanicRecorder) {
	d.mu.Lock()
	d.panics = r
	d.mu.Unlock()
}

// On регистрирует слушателя. Повторная регистрация того же колбэка - это два вызова.
func (d *Dispatcher) On(event string, fn Listener) ListenerID {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.listeners[event] = append(d.listeners[event], registration{id: id, fn: fn})
	return id
}

func (d *Dispatcher) Off(event string, id ListenerID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := d.listeners[event]
	for i, r := range regs {
		if r.id != id {
			continue
		}
		rest := make([]registration, 0, len(regs)-1)
		rest = append(rest, regs[:i]...)
		rest = append(rest, regs[i+1:]...)
		if len(rest) == 0 {
			delete(d.listeners, event)
		} else {
			d.listeners[event] = rest
		}
		return
	}
}

// Dispatch вызывает слушателей на снимке списка, так что внутри колбэка можно делать On/Off.
func (d *Dispatcher) Dispatch(event string, payload any) {
	d.mu.RLock()
	regs := d.listeners[event]
	panics := d.panics
	d.mu.RUnlock()

	for _, r := range regs {
		d.invoke(event, r, payload, panics)
	}
}

func (d *Dispatcher) Count(event string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[event])
}

func (d *Dispatcher) invoke(event string, r registration, payload any, panics PanicRecorder) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("panic in event listener",
				zap.String("event", event),
				zap.Uint64("listener_id", uint64(r.id)),
				zap.Any("panic", rec),
			)
			if panics != nil {
				panics.RecordListenerPanic(event)
			}
		}
	}()
	r.fn(payload)
}

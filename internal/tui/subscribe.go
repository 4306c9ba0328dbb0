package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kitbuilder587/predictive-search/internal/predictive"
	"github.com/kitbuilder587/predictive-search/internal/search"
)

// Subscribe пересылает события клиента в программу в порядке их появления.
// Попадание в кеш приходит синхронно прямо из Update, поэтому слушатель только кладет
// сообщение в очередь, а блокирующий Send делает одна горутина до отмены ctx.
func Subscribe(ctx context.Context, c *predictive.Client, send func(tea.Msg)) {
	f := newForwarder(send)
	go f.run(ctx)

	c.OnSuccess(func(res *search.Result) {
		f.push(ResultMsg{Result: res})
	})
	c.OnError(func(err error) {
		f.push(ErrorMsg{Err: err})
	})
}

// forwarder - неограниченная FIFO очередь перед send.
type forwarder struct {
	send func(tea.Msg)
	wake chan struct{}

	mu    sync.Mutex
	queue []tea.Msg
}

func newForwarder(send func(tea.Msg)) *forwarder {
	return &forwarder{
		send: send,
		wake: make(chan struct{}, 1),
	}
}

func (f *forwarder) push(msg tea.Msg) {
	f.mu.Lock()
	f.queue = append(f.queue, msg)
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *forwarder) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
		}

		for {
			f.mu.Lock()
			if len(f.queue) == 0 {
				f.mu.Unlock()
				break
			}
			msg := f.queue[0]
			f.queue[0] = nil
			f.queue = f.queue[1:]
			f.mu.Unlock()

			f.send(msg)
		}
	}
}

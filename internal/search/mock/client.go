package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/predictive-search/internal/search"
)

// Client - управляемый Suggester для тестов. Ответы и ошибки задаются по тексту запроса,
// Hold позволяет придержать ответ до Release.
type Client struct {
	Responses map[string]*search.Result
	Errors    map[string]error
	Error     error
	Delay     time.Duration

	CallCount   int
	LastRequest search.Request
	AllRequests []search.Request

	gates map[string]chan struct{}
	calls chan search.Request

	mu sync.Mutex
}

func New() *Client {
	return &Client{
		Responses: make(map[string]*search.Result),
		Errors:    make(map[string]error),
		gates:     make(map[string]chan struct{}),
		calls:     make(chan search.Request, 64),
	}
}

func (c *Client) WithJSON(query, body string) *Client {
	c.mu.Lock()
	c.Responses[query] = &search.Result{ContentType: "application/json", Raw: []byte(body)}
	c.mu.Unlock()
	return c
}

func (c *Client) WithText(query, body string) *Client {
	c.mu.Lock()
	c.Responses[query] = &search.Result{ContentType: "text/plain", Text: body}
	c.mu.Unlock()
	return c
}

func (c *Client) WithQueryError(query string, err error) *Client {
	c.mu.Lock()
	c.Errors[query] = err
	c.mu.Unlock()
	return c
}

func (c *Client) WithError(err error) *Client {
	c.mu.Lock()
	c.Error = err
	c.mu.Unlock()
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.mu.Lock()
	c.Delay = delay
	c.mu.Unlock()
	return c
}

// Hold придерживает ответы на query до Release.
func (c *Client) Hold(query string) {
	c.mu.Lock()
	c.gates[query] = make(chan struct{})
	c.mu.Unlock()
}

func (c *Client) Release(query string) {
	c.mu.Lock()
	gate, ok := c.gates[query]
	delete(c.gates, query)
	c.mu.Unlock()
	if ok {
		close(gate)
	}
}

// Calls - канал с каждым пришедшим запросом, удобно ждать в тестах.
func (c *Client) Calls() <-chan search.Request {
	return c.calls
}

func (c *Client) Suggest(ctx context.Context, req search.Request) (*search.Result, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastRequest = req
	c.AllRequests = append(c.AllRequests, req)
	delay := c.Delay
	gate := c.gates[req.Query]
	err := c.Error
	if qErr, ok := c.Errors[req.Query]; ok {
		err = qErr
	}
	resp := c.Responses[req.Query]
	c.mu.Unlock()

	select {
	case c.calls <- req:
	default:
	}

	if gate != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-gate:
		}
	}

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &search.Result{ContentType: "application/json", Raw: []byte(`{"resources":{"results":{"products":[]}}}`)}, nil
	}

	out := *resp
	return &out, nil
}

func (c *Client) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastRequest = search.Request{}
	c.AllRequests = nil
}

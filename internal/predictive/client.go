package predictive

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/kitbuilder587/predictive-search/internal/cache"
	"github.com/kitbuilder587/predictive-search/internal/cache/memory"
	"github.com/kitbuilder587/predictive-search/internal/debounce"
	"github.com/kitbuilder587/predictive-search/internal/dispatch"
	"github.com/kitbuilder587/predictive-search/internal/domain"
	"github.com/kitbuilder587/predictive-search/internal/metrics"
	"github.com/kitbuilder587/predictive-search/internal/search"
)

// DebounceRate - дефолтное окно схлопывания нажатий.
const DebounceRate = debounce.DefaultDelay

const DefaultRequestTimeout = 10 * time.Second

var ErrNoSuggester = errors.New("suggester is required")

// Deps - зависимости клиента. Обязателен только Suggester.
type Deps struct {
	Suggester search.Suggester
	Logger    *zap.Logger
	Metrics   *metrics.Metrics

	// Context - базовый контекст для всех запросов; отмена гасит запросы в полете
	Context        context.Context
	DebounceRate   time.Duration
	CacheSize      int
	RequestTimeout time.Duration
	Clock          clock.WithDelayedExecution
}

// Client - предиктивный поиск: кеш, debounce, отбрасывание устаревших ответов, события.
type Client struct {
	dispatcher *dispatch.Dispatcher
	cache      cache.Cache[*search.Result]
	debouncer  *debounce.Debouncer[string]
	suggester  search.Suggester
	params     string
	logger     *zap.Logger
	metrics    *metrics.Metrics
	ctx        context.Context
	timeout    time.Duration

	mu           sync.Mutex
	currentQuery string
	retryAfter   int
	throttled    bool
}

func New(cfg *domain.Config, deps Deps) (*Client, error) {
	if err := domain.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if deps.Suggester == nil {
		return nil, ErrNoSuggester
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.DebounceRate <= 0 {
		deps.DebounceRate = DebounceRate
	}
	if deps.CacheSize == 0 {
		deps.CacheSize = memory.DefaultCapacity
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = DefaultRequestTimeout
	}

	c := &Client{
		dispatcher: dispatch.New(deps.Logger),
		suggester:  deps.Suggester,
		params:     cfg.Search.QueryParams(),
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		ctx:        deps.Context,
		timeout:    deps.RequestTimeout,
	}

	results, err := memory.NewWithEvict[*search.Result](deps.CacheSize, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.cache = results

	if c.metrics != nil {
		c.dispatcher.SetPanicRecorder(c.metrics)
	}

	var opts []debounce.Option
	if deps.Clock != nil {
		opts = append(opts, debounce.WithClock(deps.Clock))
	}
	c.debouncer = debounce.New(deps.DebounceRate, c.schedule, opts...)

	return c, nil
}

// QueryValue - вход для нетипизированных значений: nil и не-строки уходят в "error".
func (c *Client) QueryValue(v any) {
	text, err := domain.ValidateQuery(v)
	if err != nil {
		c.record("invalid")
		c.dispatcher.Dispatch(dispatch.EventError, err)
		return
	}
	c.Query(text)
}

// Query fire-and-forget: результат придет через "success" или "error".
func (c *Client) Query(text string) {
	if text == "" {
		c.record("empty")
		return
	}

	c.mu.Lock()
	c.currentQuery = text
	c.mu.Unlock()

	if res, ok := c.cache.Get(text); ok {
		c.record("cache_hit")
		if c.metrics != nil {
			c.metrics.RecordCacheHit()
		}
		c.dispatcher.Dispatch(dispatch.EventSuccess, res)
		return
	}

	c.record("scheduled")
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}
	c.debouncer.Invoke(text)
}

func (c *Client) On(event string, fn dispatch.Listener) dispatch.ListenerID {
	return c.dispatcher.On(event, fn)
}

func (c *Client) Off(event string, id dispatch.ListenerID) {
	c.dispatcher.Off(event, id)
}

func (c *Client) OnSuccess(fn func(*search.Result)) dispatch.ListenerID {
	return c.On(dispatch.EventSuccess, func(payload any) {
		if res, ok := payload.(*search.Result); ok {
			fn(res)
		}
	})
}

func (c *Client) OnError(fn func(error)) dispatch.ListenerID {
	return c.On(dispatch.EventError, func(payload any) {
		if err, ok := payload.(error); ok {
			fn(err)
		}
	})
}

// RetryAfter - последняя директива троттлинга; сбрасывается первым успешным ответом.
func (c *Client) RetryAfter() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryAfter, c.throttled
}

func (c *Client) CurrentQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentQuery
}

func (c *Client) DebounceRate() time.Duration {
	return c.debouncer.Delay()
}

// schedule вызывается таймером debounce; сам запрос идет в своей горутине,
// так что несколько запросов могут быть в полете одновременно.
func (c *Client) schedule(text string) {
	go c.request(text)
}

func (c *Client) request(text string) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	if c.metrics != nil {
		c.metrics.IncRequestsInFlight()
		defer c.metrics.DecRequestsInFlight()
	}

	start := time.Now()
	res, err := c.suggester.Suggest(ctx, search.Request{Query: text, Params: c.params})
	if err == nil {
		res, err = res.WithQuery(text)
	}

	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordRequest(requestStatus(err), time.Since(start))
		}
		c.resolveError(text, err)
		return
	}

	if c.metrics != nil {
		c.metrics.RecordRequest("success", time.Since(start))
	}
	c.resolveSuccess(res)
}

// resolveSuccess кеширует всегда, а публикует только если запрос все еще текущий.
// Сравнение делается в момент ответа, поэтому порядок завершения запросов не важен.
func (c *Client) resolveSuccess(res *search.Result) {
	c.cache.Set(res.Query, res)

	c.mu.Lock()
	current := res.Query == c.currentQuery
	if current {
		c.retryAfter = 0
		c.throttled = false
	}
	c.mu.Unlock()

	if !current {
		c.logger.Debug("discarding stale result",
			zap.String("query", res.Query),
		)
		if c.metrics != nil {
			c.metrics.RecordStaleDiscard()
		}
		return
	}

	c.dispatcher.Dispatch(dispatch.EventSuccess, res)
}

// resolveError: ошибки не фильтруются по актуальности запроса.
func (c *Client) resolveError(text string, err error) {
	if retryAfter, ok := search.RetryAfter(err); ok {
		c.mu.Lock()
		c.retryAfter = retryAfter
		c.throttled = true
		c.mu.Unlock()

		c.logger.Warn("suggest request throttled",
			zap.String("query", text),
			zap.Int("retry_after", retryAfter),
		)
		if c.metrics != nil {
			c.metrics.RecordThrottled()
		}
	} else {
		c.logger.Warn("suggest request failed",
			zap.String("query", text),
			zap.Error(err),
		)
	}

	c.dispatcher.Dispatch(dispatch.EventError, err)
}

func (c *Client) onEvict(key string, _ *search.Result) {
	c.logger.Debug("result evicted from cache", zap.String("query", key))
	if c.metrics != nil {
		c.metrics.RecordCacheEviction()
	}
}

func (c *Client) record(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordQuery(outcome)
	}
}

func requestStatus(err error) string {
	var se *search.StatusError
	switch {
	case errors.As(err, new(*search.ThrottledError)):
		return "throttled"
	case errors.As(err, &se):
		return "http_error"
	case errors.Is(err, search.ErrDecode):
		return "decode_error"
	default:
		return "error"
	}
}

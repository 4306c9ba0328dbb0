package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kitbuilder587/predictive-search/internal/catalog"
	"github.com/kitbuilder587/predictive-search/internal/domain"
	"github.com/kitbuilder587/predictive-search/internal/metrics"
	"github.com/kitbuilder587/predictive-search/internal/ratelimit"
	"github.com/kitbuilder587/predictive-search/internal/search"
	"github.com/kitbuilder587/predictive-search/internal/search/storefront"
)

type Deps struct {
	Store    catalog.Store
	Limiter  *ratelimit.Limiter
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// Server - эталонный suggest эндпоинт поверх каталога.
type Server struct {
	engine  *gin.Engine
	store   catalog.Store
	limiter *ratelimit.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Server{
		engine:  gin.New(),
		store:   deps.Store,
		limiter: deps.Limiter,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}

	s.engine.Use(s.recovery(), s.accessLog())
	s.engine.GET(storefront.DefaultPath, s.suggest)
	s.engine.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run слушает addr до отмены ctx, потом делает graceful shutdown.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("suggest server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type suggestResponse struct {
	Resources resources `json:"resources"`
}

type resources struct {
	Results map[string][]search.ProductResult `json:"results"`
}

type errorResponse struct {
	Status      int    `json:"status"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (s *Server) suggest(c *gin.Context) {
	key := c.ClientIP()
	if s.limiter != nil && !s.limiter.Allow(key) {
		s.throttle(c, key)
		return
	}

	query := c.Query("query")
	if strings.TrimSpace(query) == "" {
		s.fail(c, http.StatusUnprocessableEntity, "Invalid parameter error", "'query' parameter is missing")
		return
	}

	types := domain.ParseResultTypes(c.Query("resources[type]"))
	if len(types) == 0 {
		types = []domain.ResultType{domain.TypeProduct}
	}

	limit := domain.MaxLimit
	if raw := c.Query("resources[limit]"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(c, http.StatusUnprocessableEntity, "Invalid parameter error", "'resources[limit]' must be a number")
			return
		}
		limit = n
	}

	opts := domain.SearchOptions{
		Types:               types,
		Limit:               limit,
		UnavailableProducts: c.Query("resources[options][unavailable_products]"),
	}
	if err := opts.Validate(); err != nil {
		s.fail(c, http.StatusUnprocessableEntity, "Invalid parameter error", err.Error())
		return
	}
	if limit == 0 {
		limit = domain.MaxLimit
	}

	results := make(map[string][]search.ProductResult, len(types))
	for _, t := range types {
		results[t.String()+"s"] = []search.ProductResult{}
	}

	for _, t := range types {
		if t != domain.TypeProduct {
			continue
		}
		products, err := s.store.SearchProducts(c.Request.Context(), query, limit)
		if err != nil {
			s.logger.Error("catalog search failed", zap.String("query", query), zap.Error(err))
			s.fail(c, http.StatusInternalServerError, "Internal Server Error", "catalog unavailable")
			return
		}
		results["products"] = toProductResults(arrangeUnavailable(products, opts.UnavailableProducts))
	}

	c.JSON(http.StatusOK, suggestResponse{Resources: resources{Results: results}})
}

func (s *Server) throttle(c *gin.Context, key string) {
	wait := s.limiter.RetryAfter(key)
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}

	if s.metrics != nil {
		s.metrics.RecordRateLimitHit()
	}
	s.logger.Debug("client throttled", zap.String("client", key), zap.Int("retry_after", secs))

	c.Header("Retry-After", strconv.Itoa(secs))
	c.Data(http.StatusTooManyRequests, "text/html; charset=utf-8", []byte(http.StatusText(http.StatusTooManyRequests)))
}

func (s *Server) fail(c *gin.Context, status int, message, description string) {
	c.JSON(status, errorResponse{Status: status, Message: message, Description: description})
}

// arrangeUnavailable: hide - убрать отсутствующие, last - в конец, show - как есть.
func arrangeUnavailable(products []domain.Product, mode string) []domain.Product {
	switch mode {
	case "hide":
		out := products[:0:0]
		for _, p := range products {
			if p.Available {
				out = append(out, p)
			}
		}
		return out
	case "last":
		out := make([]domain.Product, 0, len(products))
		var tail []domain.Product
		for _, p := range products {
			if p.Available {
				out = append(out, p)
			} else {
				tail = append(tail, p)
			}
		}
		return append(out, tail...)
	default:
		return products
	}
}

func toProductResults(products []domain.Product) []search.ProductResult {
	out := make([]search.ProductResult, len(products))
	for i, p := range products {
		out[i] = search.ProductResult{
			Title:     p.Title,
			Handle:    p.Handle,
			URL:       p.URL(),
			Body:      p.Body,
			Price:     p.Price,
			Image:     p.ImageURL,
			Available: p.Available,
		}
	}
	return out
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		duration := time.Since(start)
		if s.metrics != nil && c.FullPath() == storefront.DefaultPath {
			s.metrics.RecordServerRequest(strconv.Itoa(status), duration)
		}
		s.logger.Debug("request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
		)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in handler",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

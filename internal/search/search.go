package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const ProductsPath = "resources.results.products"

var (
	ErrRequestFailed = errors.New("search request failed")
	ErrDecode        = errors.New("decode response")
	ErrCrossOrigin   = errors.New("cross-origin redirect refused")
	ErrNotJSON       = errors.New("result is not json")
)

// ThrottledError - 429 с разборчивым Retry-After.
type ThrottledError struct {
	// RetryAfter как прислал сервер, без перевода в единицы
	RetryAfter int
}

func (e *ThrottledError) Error() string { return "Too Many Requests" }

func (e *ThrottledError) Name() string { return "Throttled" }

// StatusError - любой другой не-2xx ответ, Message = status text.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string { return e.Message }

// RetryAfter достает задержку из ошибки, если это троттлинг.
func RetryAfter(err error) (int, bool) {
	var te *ThrottledError
	if errors.As(err, &te) {
		return te.RetryAfter, true
	}
	return 0, false
}

type Suggester interface {
	Suggest(ctx context.Context, req Request) (*Result, error)
}

type Request struct {
	Query string
	// Params - уже сериализованные опции (domain.SearchOptions.QueryParams)
	Params string
}

// Result - декодированный ответ. JSON лежит в Raw, все остальное в Text.
type Result struct {
	Query       string
	ContentType string
	Raw         []byte
	Text        string
}

func (r *Result) IsJSON() bool { return r.Raw != nil }

func (r *Result) Get(path string) gjson.Result {
	if !r.IsJSON() {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Raw, path)
}

// WithQuery возвращает копию, помеченную исходным запросом; в JSON пишется поле "query".
func (r *Result) WithQuery(query string) (*Result, error) {
	out := *r
	out.Query = query
	if r.IsJSON() {
		raw, err := sjson.SetBytes(r.Raw, "query", query)
		if err != nil {
			return nil, fmt.Errorf("%w: stamp query: %v", ErrDecode, err)
		}
		out.Raw = raw
	}
	return &out, nil
}

type ProductResult struct {
	Title     string `json:"title"`
	Handle    string `json:"handle"`
	URL       string `json:"url"`
	Body      string `json:"body,omitempty"`
	Price     string `json:"price,omitempty"`
	Image     string `json:"image,omitempty"`
	Available bool   `json:"available"`
}

func (r *Result) Products() ([]ProductResult, error) {
	if !r.IsJSON() {
		return nil, ErrNotJSON
	}
	node := r.Get(ProductsPath)
	if !node.Exists() {
		return nil, nil
	}

	var products []ProductResult
	if err := json.Unmarshal([]byte(node.Raw), &products); err != nil {
		return nil, fmt.Errorf("%w: products: %v", ErrDecode, err)
	}
	return products, nil
}

package domain

import (
	"net/url"
	"strconv"
	"strings"
)

const MaxLimit = 10

type ResultType string

const (
	TypeProduct    ResultType = "product"
	TypePage       ResultType = "page"
	TypeArticle    ResultType = "article"
	TypeCollection ResultType = "collection"
)

func (t ResultType) IsValid() bool {
	switch t {
	case TypeProduct, TypePage, TypeArticle, TypeCollection:
		return true
	}
	return false
}

func (t ResultType) String() string { return string(t) }

// ParseResultTypes разбирает "product,page" в список типов.
func ParseResultTypes(s string) []ResultType {
	var out []ResultType
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, ResultType(strings.ToLower(part)))
	}
	return out
}

// SearchOptions - опции предиктивного поиска, уходят в query string.
type SearchOptions struct {
	Types               []ResultType
	Limit               int // 0 - дефолт сервера
	UnavailableProducts string
	Fields              []string
}

func (o SearchOptions) Validate() error {
	if len(o.Types) == 0 {
		return ErrNoResultTypes
	}
	for _, t := range o.Types {
		if !t.IsValid() {
			return ErrInvalidResultType
		}
	}
	if o.Limit < 0 || o.Limit > MaxLimit {
		return ErrInvalidLimit
	}
	switch o.UnavailableProducts {
	case "", "show", "hide", "last":
	default:
		return ErrInvalidUnavailableMode
	}
	return nil
}

// QueryParams сериализует опции в формат resources[...]. Порядок ключей стабильный.
func (o SearchOptions) QueryParams() string {
	v := url.Values{}
	if len(o.Types) > 0 {
		types := make([]string, len(o.Types))
		for i, t := range o.Types {
			types[i] = t.String()
		}
		v.Set("resources[type]", strings.Join(types, ","))
	}
	if o.Limit > 0 {
		v.Set("resources[limit]", strconv.Itoa(o.Limit))
	}
	if o.UnavailableProducts != "" {
		v.Set("resources[options][unavailable_products]", o.UnavailableProducts)
	}
	if len(o.Fields) > 0 {
		v.Set("resources[options][fields]", strings.Join(o.Fields, ","))
	}
	return v.Encode()
}

type Config struct {
	Search *SearchOptions
}

func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return ErrMissingConfig
	}
	if cfg.Search == nil {
		return ErrMissingSearchOptions
	}
	return cfg.Search.Validate()
}

func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Types:               []ResultType{TypeProduct},
		Limit:               MaxLimit,
		UnavailableProducts: "last",
	}
}

package domain

import (
	"strings"
	"time"
)

type Product struct {
	ID        int64
	Title     string
	Handle    string
	Body      string
	Price     string
	ImageURL  string
	Available bool
	CreatedAt time.Time
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// URL - путь до товара на витрине.
func (p Product) URL() string {
	if p.Handle == "" {
		return ""
	}
	return "/products/" + p.Handle
}

// Slugify делает handle из названия: "The Calling" -> "the-calling".
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

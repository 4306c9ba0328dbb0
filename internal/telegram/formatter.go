package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kitbuilder587/predictive-search/internal/search"
)

const maxDescriptionLen = 100

// FormatArticles превращает товары в inline результаты. storeURL делает ссылки абсолютными.
func FormatArticles(products []search.ProductResult, storeURL string) []interface{} {
	results := make([]interface{}, 0, len(products))
	for i, p := range products {
		link := absoluteURL(storeURL, p.URL)

		article := tgbotapi.NewInlineQueryResultArticleHTML(
			strconv.Itoa(i),
			p.Title,
			FormatProductMessage(p, link),
		)
		article.Description = describe(p)
		article.URL = link
		article.ThumbURL = p.Image

		results = append(results, article)
	}
	return results
}

func FormatProductMessage(p search.ProductResult, link string) string {
	var sb strings.Builder

	if link != "" {
		sb.WriteString(fmt.Sprintf("<a href=\"%s\"><b>%s</b></a>", html.EscapeString(link), html.EscapeString(p.Title)))
	} else {
		sb.WriteString(fmt.Sprintf("<b>%s</b>", html.EscapeString(p.Title)))
	}

	if p.Price != "" {
		sb.WriteString("\n" + html.EscapeString(p.Price))
	}
	if !p.Available {
		sb.WriteString("\nНет в наличии")
	}

	return sb.String()
}

func describe(p search.ProductResult) string {
	var parts []string
	if p.Price != "" {
		parts = append(parts, p.Price)
	}
	if !p.Available {
		parts = append(parts, "нет в наличии")
	}
	if p.Body != "" {
		parts = append(parts, p.Body)
	}
	return truncate(strings.Join(parts, " · "), maxDescriptionLen)
}

func absoluteURL(base, path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + path
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

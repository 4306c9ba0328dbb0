package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/predictive-search/internal/search"
)

const helpText = `<b>Поиск по каталогу</b>

Наберите в любом чате имя бота и начало названия товара, подсказки появятся по мере ввода.`

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start", "help":
		if err := h.bot.Send(msg.Chat.ID, helpText); err != nil {
			h.bot.logger.Warn("failed to send help", zap.Error(err))
		}
	}
}

func (h *Handler) HandleInlineQuery(q *tgbotapi.InlineQuery) {
	if q.From == nil {
		return
	}
	text := normalizeSpaces(q.Query)

	h.bot.logger.Debug("received inline query",
		zap.Int64("user_id", q.From.ID),
		zap.String("query", text),
	)

	if text == "" {
		h.answer(tgbotapi.InlineConfig{InlineQueryID: q.ID, Results: []interface{}{}, IsPersonal: true})
		return
	}

	s, err := h.bot.session(q.From.ID)
	if err != nil {
		h.bot.logger.Error("failed to create session", zap.Error(err))
		return
	}

	s.remember(text, q.ID)
	s.client.Query(text)
}

func (h *Handler) subscribe(s *session) {
	s.client.OnSuccess(func(res *search.Result) {
		h.onSuccess(s, res)
	})
	s.client.OnError(func(err error) {
		h.onError(s, err)
	})
}

func (h *Handler) onSuccess(s *session, res *search.Result) {
	id, ok := s.take(res.Query)
	if !ok {
		// уже ответили, например из кеша
		return
	}

	var results []interface{}
	if products, err := res.Products(); err == nil {
		results = FormatArticles(products, h.bot.storeURL)
	} else {
		h.bot.logger.Debug("non-product result", zap.String("query", res.Query), zap.Error(err))
	}
	if results == nil {
		results = []interface{}{}
	}

	h.answer(tgbotapi.InlineConfig{
		InlineQueryID: id,
		Results:       results,
		IsPersonal:    true,
	})
}

// onError: ошибка не знает своего запроса, отвечаем на текущий.
// При троттлинге Telegram кеширует пустой ответ на время Retry-After.
func (h *Handler) onError(s *session, err error) {
	h.bot.logger.Warn("suggest failed",
		zap.Int64("user_id", s.userID),
		zap.Error(err),
	)

	retryAfter, throttled := search.RetryAfter(err)
	if !throttled {
		return
	}

	id, ok := s.take(s.client.CurrentQuery())
	if !ok {
		return
	}

	h.answer(tgbotapi.InlineConfig{
		InlineQueryID: id,
		Results:       []interface{}{},
		CacheTime:     retryAfter,
		IsPersonal:    true,
	})
}

func (h *Handler) answer(cfg tgbotapi.InlineConfig) {
	if err := h.bot.answer(cfg); err != nil {
		h.bot.logger.Warn("failed to answer inline query",
			zap.String("inline_query_id", cfg.InlineQueryID),
			zap.Error(err),
		)
	}
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/kitbuilder587/predictive-search/internal/predictive"
)

const DefaultMaxSessions = 1000

var ErrNoClientFactory = errors.New("client factory is required")

// API - то, что нам нужно от tgbotapi.BotAPI. В тестах подменяется фейком.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ClientFactory создает предиктивный клиент для одного пользователя.
type ClientFactory func(userID int64) (*predictive.Client, error)

type BotConfig struct {
	Token string
	Debug bool
	// StoreURL - база для абсолютных ссылок на товары
	StoreURL    string
	MaxSessions int
}

type Bot struct {
	api       API
	newClient ClientFactory
	storeURL  string
	logger    *zap.Logger
	handler   *Handler

	// sessions - по клиенту на пользователя, давно неактивные вытесняются
	mu       sync.Mutex
	sessions *lru.Cache[int64, *session]
}

// NewAPI авторизуется в Telegram.
func NewAPI(cfg BotConfig, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	api.Debug = cfg.Debug

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)
	return api, nil
}

func New(cfg BotConfig, api API, newClient ClientFactory, logger *zap.Logger) (*Bot, error) {
	if newClient == nil {
		return nil, ErrNoClientFactory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}

	sessions, err := lru.New[int64, *session](cfg.MaxSessions)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}

	bot := &Bot{
		api:       api,
		newClient: newClient,
		storeURL:  cfg.StoreURL,
		logger:    logger,
		sessions:  sessions,
	}
	bot.handler = NewHandler(bot)

	return bot, nil
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping")
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(update)
		}
	}
}

// handleUpdate не блокируется: ответы на inline запросы уходят из слушателей клиента.
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int("update_id", update.UpdateID),
			)
		}
	}()

	switch {
	case update.InlineQuery != nil:
		b.handler.HandleInlineQuery(update.InlineQuery)
	case update.Message != nil:
		b.handler.HandleMessage(update.Message)
	}
}

func (b *Bot) session(userID int64) (*session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions.Get(userID); ok {
		return s, nil
	}

	client, err := b.newClient(userID)
	if err != nil {
		return nil, fmt.Errorf("create client for user %d: %w", userID, err)
	}

	s := newSession(userID, client)
	b.handler.subscribe(s)
	b.sessions.Add(userID, s)
	return s, nil
}

func (b *Bot) Sessions() int {
	return b.sessions.Len()
}

func (b *Bot) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.api.Request(msg)
	return err
}

func (b *Bot) answer(cfg tgbotapi.InlineConfig) error {
	_, err := b.api.Request(cfg)
	return err
}

// session - клиент пользователя и последний inline запрос. Telegram ждет ответа
// только на свежий запрос, более ранние id забываются.
type session struct {
	userID int64
	client *predictive.Client

	mu          sync.Mutex
	pendingText string
	pendingID   string
}

func newSession(userID int64, client *predictive.Client) *session {
	return &session{
		userID: userID,
		client: client,
	}
}

func (s *session) remember(text, queryID string) {
	s.mu.Lock()
	s.pendingText, s.pendingID = text, queryID
	s.mu.Unlock()
}

// take отдает id и забывает его: на inline запрос отвечают один раз.
func (s *session) take(text string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingID == "" || s.pendingText != text {
		return "", false
	}
	id := s.pendingID
	s.pendingText, s.pendingID = "", ""
	return id, true
}

func (s *session) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingID != ""
}

// Package bot implements the Telegram front end: it resolves links into
// selection keyboards and turns button presses into download jobs.
package bot

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/ytdbot/ytd-bot/internal/config"
	"github.com/ytdbot/ytd-bot/internal/domain"
	"github.com/ytdbot/ytd-bot/internal/engine"
	"github.com/ytdbot/ytd-bot/internal/infra/cache"
	"github.com/ytdbot/ytd-bot/internal/infra/sqlite"
	"github.com/ytdbot/ytd-bot/internal/orchestrator"
	"github.com/ytdbot/ytd-bot/internal/session"
	"github.com/ytdbot/ytd-bot/internal/urlx"
)

// Bot wires the Telegram API to the download pipeline.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	log      *slog.Logger
	sessions *session.Store
	metadata *cache.MetadataCache
	probe    engine.Engine
	orch     *orchestrator.Orchestrator
	history  *sqlite.Repository
	norm     urlx.Normalizer

	// limiter paces outgoing sends so long catalogs and status edits do
	// not trip Telegram's flood control.
	limiter *rate.Limiter

	mu         sync.Mutex
	authorized map[int64]bool

	jobs sync.WaitGroup
}

// Deps collects the bot's collaborators.
type Deps struct {
	API      *tgbotapi.BotAPI
	Sessions *session.Store
	Metadata *cache.MetadataCache
	Probe    engine.Engine
	Orch     *orchestrator.Orchestrator
	History  *sqlite.Repository // optional
}

// New creates a Bot. Users listed in cfg.AllowedIDs start authorized;
// everyone else must present the access code, unless no code is set.
func New(cfg *config.Config, deps Deps, log *slog.Logger) *Bot {
	authorized := make(map[int64]bool, len(cfg.AllowedIDs))
	for _, id := range cfg.AllowedIDs {
		authorized[id] = true
	}

	return &Bot{
		api:        deps.API,
		cfg:        cfg,
		log:        log,
		sessions:   deps.Sessions,
		metadata:   deps.Metadata,
		probe:      deps.Probe,
		orch:       deps.Orch,
		history:    deps.History,
		limiter:    rate.NewLimiter(rate.Limit(cfg.SendRateRPS), cfg.SendBurst),
		authorized: authorized,
	}
}

// Run consumes updates until ctx is cancelled, then waits for in-flight
// jobs to finish.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.jobs.Wait()
			b.log.Info("bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.jobs.Wait()
				return nil
			}
			// Each update gets its own goroutine so a slow download
			// never blocks the update loop.
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) isAuthorized(userID int64) bool {
	if b.cfg.AccessCode == "" {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.authorized[userID]
}

func (b *Bot) authorize(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authorized[userID] = true
}

// send delivers any chattable through the rate limiter.
func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	msg, err := b.api.Send(c)
	if err != nil {
		b.log.Warn("telegram send failed", "error", err)
	}
	return msg, err
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	_, _ = b.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) editText(ctx context.Context, chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	_, _ = b.send(ctx, edit)
}

// jobObserver edits the status message as the job advances.
func (b *Bot) jobObserver(ctx context.Context, chatID int64, messageID int) orchestrator.Observer {
	return func(job *domain.DownloadJob) {
		if text := stateText(job.State); text != "" {
			b.editText(ctx, chatID, messageID, text)
		}
	}
}

package bot

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/ytdbot/ytd-bot/internal/catalog"
	"github.com/ytdbot/ytd-bot/internal/domain"
	"github.com/ytdbot/ytd-bot/internal/engine"
	"github.com/ytdbot/ytd-bot/internal/protocol"
	"github.com/ytdbot/ytd-bot/internal/urlx"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in update handler", "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if !b.isAuthorized(userID) {
		// A bare access code is accepted outside of /start too.
		if b.cfg.AccessCode != "" && msg.Text == b.cfg.AccessCode {
			b.authorize(userID)
			b.reply(ctx, chatID, msgAccessGranted)
			return
		}
		b.reply(ctx, chatID, msgNotAuthorized)
		return
	}

	if msg.Document != nil {
		b.handleCookieUpload(ctx, msg)
		return
	}

	switch msg.Text {
	case "":
	case btnHelp:
		b.reply(ctx, chatID, msgStart)
	case btnHistory:
		b.sendHistory(ctx, userID, chatID)
	default:
		b.handleLink(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		if b.cfg.AccessCode == "" || b.isAuthorized(userID) {
			b.sendWelcome(ctx, chatID)
			return
		}
		if code := msg.CommandArguments(); code != "" {
			if code == b.cfg.AccessCode {
				b.authorize(userID)
				b.reply(ctx, chatID, msgAccessGranted)
			} else {
				b.reply(ctx, chatID, msgAccessDenied)
			}
			return
		}
		b.reply(ctx, chatID, msgAccessPrompt)
	case "history":
		if !b.isAuthorized(userID) {
			b.reply(ctx, chatID, msgNotAuthorized)
			return
		}
		b.sendHistory(ctx, userID, chatID)
	default:
		b.reply(ctx, chatID, msgStart)
	}
}

func (b *Bot) sendWelcome(ctx context.Context, chatID int64) {
	m := tgbotapi.NewMessage(chatID, msgStart)
	m.ReplyMarkup = mainMenuKeyboard()
	_, _ = b.send(ctx, m)
}

func (b *Bot) sendHistory(ctx context.Context, userID, chatID int64) {
	if b.history == nil {
		b.reply(ctx, chatID, msgHistoryEmpty)
		return
	}
	entries, err := b.history.RecentByUser(ctx, userID, 10)
	if err != nil {
		b.log.Warn("failed to load history", "user_id", userID, "error", err)
		b.reply(ctx, chatID, msgInternalError)
		return
	}
	b.reply(ctx, chatID, historyText(entries))
}

// handleLink resolves a pasted URL into a selection keyboard bound to a
// fresh session.
func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	canonical, err := b.norm.Normalize(msg.Text)
	if err != nil {
		if errors.Is(err, urlx.ErrEmptyURL) || errors.Is(err, urlx.ErrInvalidURL) || errors.Is(err, urlx.ErrBadScheme) {
			b.reply(ctx, chatID, msgBadURL)
			return
		}
		b.reply(ctx, chatID, msgInternalError)
		return
	}

	// Opportunistic sweep keeps the session map from accumulating
	// abandoned keyboards.
	b.sessions.SweepExpired(time.Now())

	status, err := b.send(ctx, tgbotapi.NewMessage(chatID, msgProbing))
	if err != nil {
		return
	}

	meta, err := b.probeMetadata(ctx, canonical, msg.From.ID)
	if err != nil {
		b.editText(ctx, chatID, status.MessageID, failureText(
			domain.NewFailure(domain.FailExtraction, string(engine.Classify(err)), err)))
		return
	}

	renditions := catalog.Build(meta)
	media := domain.MediaReference{
		CanonicalURL: canonical,
		Title:        meta.Title,
		ThumbnailURL: meta.Thumbnail,
	}

	keyboard, err := selectionKeyboard(renditions, media.ThumbnailURL != "")
	if err != nil {
		b.log.Error("failed to build keyboard", "url", canonical, "error", err)
		b.editText(ctx, chatID, status.MessageID, msgInternalError)
		return
	}

	// The session is keyed by the message that carries the buttons, so a
	// press can be resolved without any payload beyond the action token.
	b.sessions.Put(status.MessageID, media, renditions)

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, status.MessageID,
		selectionPrompt(media.Title, len(renditions)), keyboard)
	_, _ = b.send(ctx, edit)
}

func (b *Bot) probeMetadata(ctx context.Context, canonical string, userID int64) (*engine.Metadata, error) {
	if meta, ok := b.metadata.Get(canonical); ok {
		return meta, nil
	}

	opts := engine.Options{
		CookieFile: b.cookiePath(userID),
		Timeout:    b.cfg.ProbeTimeout,
	}
	meta, err := b.probe.Probe(ctx, canonical, opts)
	if err != nil {
		return nil, err
	}

	b.metadata.Set(canonical, meta)
	return meta, nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Ack first so the client stops its spinner regardless of outcome.
	_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, ""))

	if cb.Message == nil || !b.isAuthorized(cb.From.ID) {
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	action, err := protocol.Decode(cb.Data)
	if err != nil {
		b.log.Warn("undecodable callback token", "data", cb.Data, "error", err)
		b.editText(ctx, chatID, messageID, callbackIssueText(err))
		return
	}

	sess, ok := b.sessions.TakeIfValid(messageID)
	if !ok {
		b.editText(ctx, chatID, messageID, callbackIssueText(nil))
		return
	}

	if action.Kind == protocol.KindFetchThumbnail {
		b.sendThumbnail(ctx, chatID, messageID, sess.Media)
		return
	}

	mode, ok := modeForKind(action.Kind)
	if !ok {
		b.editText(ctx, chatID, messageID, msgSessionExpired)
		return
	}

	job := domain.NewDownloadJob(uuid.New().String(), sess.Media.CanonicalURL, sess.Media.Title,
		mode, cb.From.ID, chatID)
	if mode == domain.ModeInteractivePick {
		r, found := sess.FindRendition(action.RenditionID)
		if !found {
			b.log.Warn("callback referenced unknown rendition",
				"rendition_id", action.RenditionID, "message_id", messageID)
			b.editText(ctx, chatID, messageID, msgSessionExpired)
			return
		}
		job.RenditionID = r.ID
	}

	b.editText(ctx, chatID, messageID, msgQueued)

	b.jobs.Add(1)
	go func() {
		defer b.jobs.Done()
		b.runJob(ctx, job, messageID)
	}()
}

func (b *Bot) runJob(ctx context.Context, job *domain.DownloadJob, statusMessageID int) {
	art, err := b.orch.Run(ctx, job, b.jobObserver(ctx, job.ChatID, statusMessageID))
	if err != nil {
		b.editText(ctx, job.ChatID, statusMessageID, failureText(err))
		return
	}
	b.editText(ctx, job.ChatID, statusMessageID,
		publishedText(job.Title, art.PublicURL, art.SizeBytes))
}

func (b *Bot) sendThumbnail(ctx context.Context, chatID int64, messageID int, media domain.MediaReference) {
	if media.ThumbnailURL == "" {
		b.editText(ctx, chatID, messageID, msgThumbnailAbsent)
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(media.ThumbnailURL))
	photo.Caption = media.Title
	if _, err := b.send(ctx, photo); err != nil {
		b.editText(ctx, chatID, messageID, msgInternalError)
	}
}

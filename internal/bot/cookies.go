package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytdbot/ytd-bot/pkg/safeclient"
)

// maxCookieFileSize bounds uploaded cookie jars. Real exports are a few
// kilobytes.
const maxCookieFileSize = 512 * 1024

// CookieFile returns the stored cookie jar for a user under dir, or ""
// when none exists. The orchestrator uses the same lookup.
func CookieFile(dir string, userID int64) string {
	path := filepath.Join(dir, fmt.Sprintf("cookies_%d.txt", userID))
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (b *Bot) cookiePath(userID int64) string {
	return CookieFile(b.cfg.CookiesDir, userID)
}

// handleCookieUpload stores a user-supplied cookies.txt so later
// downloads can authenticate.
func (b *Bot) handleCookieUpload(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	doc := msg.Document

	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".txt") {
		b.reply(ctx, chatID, msgCookiesBadFile)
		return
	}
	if doc.FileSize > maxCookieFileSize {
		b.reply(ctx, chatID, msgCookiesTooBig)
		return
	}

	fileURL, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		b.log.Warn("failed to resolve cookie file URL", "error", err)
		b.reply(ctx, chatID, msgInternalError)
		return
	}

	resp, err := safeclient.Get(ctx, fileURL)
	if err != nil {
		b.log.Warn("failed to fetch cookie file", "error", err)
		b.reply(ctx, chatID, msgInternalError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.log.Warn("cookie file fetch returned non-OK status", "status", resp.StatusCode)
		b.reply(ctx, chatID, msgInternalError)
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCookieFileSize+1))
	if err != nil {
		b.log.Warn("failed to read cookie file", "error", err)
		b.reply(ctx, chatID, msgInternalError)
		return
	}
	if len(data) > maxCookieFileSize {
		b.reply(ctx, chatID, msgCookiesTooBig)
		return
	}

	if err := os.MkdirAll(b.cfg.CookiesDir, 0700); err != nil {
		b.log.Error("failed to create cookies directory", "error", err)
		b.reply(ctx, chatID, msgInternalError)
		return
	}

	path := filepath.Join(b.cfg.CookiesDir, fmt.Sprintf("cookies_%d.txt", msg.From.ID))
	if err := os.WriteFile(path, data, 0600); err != nil {
		b.log.Error("failed to store cookie file", "error", err)
		b.reply(ctx, chatID, msgInternalError)
		return
	}

	b.log.Info("cookie file stored", "user_id", msg.From.ID, "size", len(data))
	b.reply(ctx, chatID, msgCookiesSaved)
}

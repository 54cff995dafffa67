package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytdbot/ytd-bot/internal/domain"
	"github.com/ytdbot/ytd-bot/internal/protocol"
)

// renditionsPerRow keeps quality buttons readable on phone screens.
const renditionsPerRow = 2

// Persistent reply-keyboard buttons.
const (
	btnHelp    = "Инструкция"
	btnHistory = "Мои загрузки"
)

// mainMenuKeyboard is the persistent reply keyboard shown after /start.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnHelp),
			tgbotapi.NewKeyboardButton(btnHistory),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// selectionKeyboard builds the inline keyboard for one resolved media
// reference: one button per catalog entry, a row of mode shortcuts and a
// thumbnail button. Renditions whose token would not fit the callback
// payload are skipped by the catalog builder earlier.
func selectionKeyboard(catalog []domain.Rendition, hasThumbnail bool) (tgbotapi.InlineKeyboardMarkup, error) {
	var rows [][]tgbotapi.InlineKeyboardButton

	var row []tgbotapi.InlineKeyboardButton
	for _, r := range catalog {
		token, err := protocol.Encode(protocol.Action{
			Kind:        protocol.KindPickRendition,
			RenditionID: r.ID,
		})
		if err != nil {
			return tgbotapi.InlineKeyboardMarkup{}, fmt.Errorf("encode rendition token: %w", err)
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(r.Label, token))
		if len(row) == renditionsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	modeRow, err := modeButtons()
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	rows = append(rows, modeRow...)

	if hasThumbnail {
		token, err := protocol.Encode(protocol.Action{Kind: protocol.KindFetchThumbnail})
		if err != nil {
			return tgbotapi.InlineKeyboardMarkup{}, fmt.Errorf("encode thumbnail token: %w", err)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Обложка", token),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}

func modeButtons() ([][]tgbotapi.InlineKeyboardButton, error) {
	modes := []struct {
		label string
		kind  protocol.Kind
	}{
		{"Безопасно (MP4)", protocol.KindDownloadSafe},
		{"Лучшее качество", protocol.KindDownloadBest},
		{"Любой формат", protocol.KindDownloadAny},
		{"Только звук (MP3)", protocol.KindDownloadAudio},
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, m := range modes {
		token, err := protocol.Encode(protocol.Action{Kind: m.kind})
		if err != nil {
			return nil, fmt.Errorf("encode mode token: %w", err)
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(m.label, token))
		if len(row) == renditionsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows, nil
}

// modeForKind maps a decoded action to the download mode it requests.
func modeForKind(k protocol.Kind) (domain.DownloadMode, bool) {
	switch k {
	case protocol.KindPickRendition:
		return domain.ModeInteractivePick, true
	case protocol.KindDownloadSafe:
		return domain.ModeSafeFallback, true
	case protocol.KindDownloadBest:
		return domain.ModeBestQuality, true
	case protocol.KindDownloadAny:
		return domain.ModeAnyFormat, true
	case protocol.KindDownloadAudio:
		return domain.ModeAudioOnly, true
	default:
		return "", false
	}
}

package bot

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ytdbot/ytd-bot/internal/domain"
	"github.com/ytdbot/ytd-bot/internal/engine"
)

// User-facing strings. The bot speaks Russian.
const (
	msgStart = "Привет! Отправь мне ссылку на видео, и я подготовлю варианты для скачивания.\n\n" +
		"Можно также прислать файл cookies.txt, чтобы скачивать видео, требующие входа в аккаунт."
	msgAccessPrompt    = "Для доступа к боту введи код приглашения."
	msgAccessGranted   = "Код принят! Отправь ссылку на видео."
	msgAccessDenied    = "Неверный код приглашения."
	msgNotAuthorized   = "Нет доступа. Введи код приглашения командой /start."
	msgProbing         = "Получаю информацию о видео, подожди немного..."
	msgBadURL          = "Это не похоже на поддерживаемую ссылку. Пришли прямую ссылку на видео."
	msgSessionExpired  = "Эти кнопки устарели. Отправь ссылку ещё раз."
	msgBadButton       = "Не удалось обработать нажатие кнопки. Отправь ссылку ещё раз."
	msgNoFormats       = "Не удалось найти подходящие форматы. Попробуй режимы «Лучшее» или «Любое»."
	msgQueued          = "Задача принята, начинаю загрузку..."
	msgExtracting      = "Получаю метаданные..."
	msgDownloading     = "Скачиваю видео..."
	msgDownloadingAlt  = "Первая попытка не удалась, пробую резервный загрузчик..."
	msgStaging         = "Обрабатываю файл..."
	msgCookiesSaved    = "Файл cookies сохранён. Теперь можно скачивать видео с ограниченным доступом."
	msgCookiesBadFile  = "Нужен текстовый файл cookies.txt в формате Netscape."
	msgCookiesTooBig   = "Файл cookies слишком большой."
	msgHistoryEmpty    = "История загрузок пуста."
	msgThumbnailAbsent = "У этого видео нет обложки."
	msgInternalError   = "Что-то пошло не так. Попробуй ещё раз позже."
)

// selectionPrompt heads the keyboard message. An empty catalog still
// gets the mode shortcuts, so the prompt says why no quality buttons are
// shown instead of presenting a bare keyboard.
func selectionPrompt(title string, renditions int) string {
	if renditions == 0 {
		return title + "\n\n" + msgNoFormats
	}
	return title + "\n\nВыбери формат:"
}

// callbackIssueText reports why a button press could not be honored: a
// token that does not decode is a distinct outcome from a consumed or
// expired session.
func callbackIssueText(decodeErr error) string {
	if decodeErr != nil {
		return msgBadButton
	}
	return msgSessionExpired
}

// hintText maps a failure classification to advice for the user.
func hintText(reason engine.Reason) string {
	switch reason {
	case engine.ReasonAgeRestricted:
		return "Видео с возрастным ограничением. Пришли файл cookies.txt от аккаунта, где ограничение снято."
	case engine.ReasonPrivate:
		return "Это приватное видео. Нужны cookies аккаунта, у которого есть доступ."
	case engine.ReasonPremiere:
		return "Это премьера, видео ещё не опубликовано. Попробуй после начала показа."
	case engine.ReasonAuthRequired:
		return "Видео требует входа в аккаунт. Пришли файл cookies.txt."
	case engine.ReasonGeoBlocked:
		return "Видео недоступно в регионе сервера."
	case engine.ReasonUnavailable:
		return "Видео недоступно или удалено."
	default:
		return ""
	}
}

func failureText(err error) string {
	var b strings.Builder
	b.WriteString("Не удалось скачать видео.")
	if hint := hintText(engine.Reason(domain.HintOf(err))); hint != "" {
		b.WriteString("\n\n")
		b.WriteString(hint)
	}
	return b.String()
}

func publishedText(title, link string, sizeBytes int64) string {
	return fmt.Sprintf("Готово: %s\nРазмер: %s\n\nСсылка на скачивание (действует ограниченное время):\n%s",
		title, humanize.IBytes(uint64(sizeBytes)), link)
}

func stateText(state domain.JobState) string {
	switch state {
	case domain.StateQueued:
		return msgQueued
	case domain.StateExtractingMetadata:
		return msgExtracting
	case domain.StateDownloadingPrimary:
		return msgDownloading
	case domain.StateDownloadingFallback:
		return msgDownloadingAlt
	case domain.StateStaging:
		return msgStaging
	default:
		return ""
	}
}

func historyText(entries []*domain.HistoryEntry) string {
	if len(entries) == 0 {
		return msgHistoryEmpty
	}
	var b strings.Builder
	b.WriteString("Последние загрузки:\n")
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.URL
		}
		if e.State == domain.StatePublished {
			fmt.Fprintf(&b, "\n%s (%s, %s)", title, humanize.IBytes(uint64(e.SizeBytes)), humanize.Time(e.FinishedAt))
		} else {
			fmt.Fprintf(&b, "\n%s (ошибка, %s)", title, humanize.Time(e.FinishedAt))
		}
	}
	return b.String()
}

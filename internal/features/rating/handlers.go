// Package rating — handlers.go обрабатывает команду !рейтинг.
package rating

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"godspace.ru/economy-game/internal/common"
)

// Handler обрабатывает команды рейтинга.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleLeaderboard обрабатывает команду !рейтинг — топ-10 по монетам.
func (h *Handler) HandleLeaderboard(ctx context.Context, chatID int64) {
	top, err := h.service.Top(ctx, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка получения рейтинга")
		h.sendMessage(chatID, "❌ Ошибка получения рейтинга")
		return
	}

	if len(top) == 0 {
		h.sendMessage(chatID, "🏆 Рейтинг пока пуст")
		return
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var sb strings.Builder
	sb.WriteString("🏆 Таблица лидеров:\n\n")
	for i, e := range top {
		place := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			place = medals[i]
		}
		sb.WriteString(fmt.Sprintf("%s %s (%s) — %s\n",
			place, e.DisplayName, e.ClassName, common.FormatCoins(e.Coins)))
	}
	h.sendMessage(chatID, sb.String())
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

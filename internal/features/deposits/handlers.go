// Package deposits — handlers.go обрабатывает команды:
// !вклад <сумма> <тип>, !вклады.
package deposits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"godspace.ru/economy-game/internal/common"
	"godspace.ru/economy-game/internal/features/players"
)

// Handler обрабатывает команды вкладов.
type Handler struct {
	service *Service
	players *players.Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик и регистрирует уведомление игрока
// о закрытии вклада.
func NewHandler(service *Service, playerService *players.Service, bot *tgbotapi.BotAPI) *Handler {
	h := &Handler{service: service, players: playerService, bot: bot}
	service.SetNotifier(h.notifyResolved)
	return h
}

// HandleOpen обрабатывает команду !вклад 50 надёжный.
func (h *Handler) HandleOpen(ctx context.Context, chatID int64, p *players.Player, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "❌ Формат: !вклад СУММА надёжный|рискованный")
		return
	}

	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || amount <= 0 {
		h.sendMessage(chatID, "❌ Сумма должна быть положительным числом")
		return
	}

	depositType, ok := ParseType(args[1])
	if !ok {
		h.sendMessage(chatID, "❌ Тип вклада: надёжный или рискованный")
		return
	}

	d, err := h.service.Open(ctx, p.Code, amount, depositType)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInsufficientFunds):
			h.sendMessage(chatID, "❌ Недостаточно монет для вклада")
		case errors.Is(err, common.ErrInvalidAmount):
			h.sendMessage(chatID, "❌ Сумма должна быть положительным числом")
		default:
			log.WithError(err).Error("Ошибка открытия вклада")
			h.sendMessage(chatID, "❌ Не удалось открыть вклад, попробуйте ещё раз")
		}
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏦 Вклад №%d открыт: %s (%s)\n",
		d.ID, common.FormatCoins(d.Amount), d.TypeRussian()))
	if d.ExpectedProfit != nil {
		sb.WriteString(fmt.Sprintf("📈 Гарантированная прибыль: %s\n", common.FormatDelta(*d.ExpectedProfit)))
	} else {
		sb.WriteString("🎲 Результат узнаете при закрытии — удачи!\n")
	}
	sb.WriteString(fmt.Sprintf("⏰ Закроется: %s", common.FormatDateTime(d.EndTime)))
	h.sendMessage(chatID, sb.String())
}

// HandleList обрабатывает команду !вклады.
func (h *Handler) HandleList(ctx context.Context, chatID int64, p *players.Player) {
	list, err := h.service.List(ctx, p.Code)
	if err != nil {
		log.WithError(err).Error("Ошибка списка вкладов")
		h.sendMessage(chatID, "❌ Ошибка получения вкладов")
		return
	}

	if len(list) == 0 {
		h.sendMessage(chatID, "🏦 У вас пока нет вкладов")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏦 Ваши вклады:\n\n")
	for _, d := range list {
		if d.Active() {
			sb.WriteString(fmt.Sprintf("№%d %s (%s) — закроется %s\n",
				d.ID, common.FormatCoins(d.Amount), d.TypeRussian(), common.FormatDateTime(d.EndTime)))
			continue
		}
		profit := int64(0)
		if d.ActualProfit != nil {
			profit = *d.ActualProfit
		}
		sb.WriteString(fmt.Sprintf("№%d %s (%s) — закрыт, прибыль %s\n",
			d.ID, common.FormatCoins(d.Amount), d.TypeRussian(), common.FormatDelta(profit)))
	}
	h.sendMessage(chatID, sb.String())
}

// notifyResolved шлёт игроку личное сообщение о закрытии вклада.
func (h *Handler) notifyResolved(ctx context.Context, d *Deposit, profit int64) {
	p, err := h.players.GetByCode(ctx, d.PlayerCode)
	if err != nil || p.TelegramUserID == nil {
		return
	}

	payout := d.Amount + profit
	var text string
	if profit >= 0 {
		text = fmt.Sprintf("🏦 Вклад №%d закрыт!\n💰 На счёт зачислено %s (прибыль %s)",
			d.ID, common.FormatCoins(payout), common.FormatDelta(profit))
	} else {
		text = fmt.Sprintf("🏦 Вклад №%d закрыт.\n📉 Не повезло: на счёт вернулось %s (%s)",
			d.ID, common.FormatCoins(payout), common.FormatDelta(profit))
	}
	h.sendMessage(*p.TelegramUserID, text)
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

// Package shop — handlers.go обрабатывает команды:
// !магазин, !купить <номер> [количество], !заказы.
package shop

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

// Handler обрабатывает команды магазина.
type Handler struct {
	service  *Service
	bot      *tgbotapi.BotAPI
	adminIDs []int64
}

// NewHandler создаёт обработчик команд магазина. adminIDs — кому
// отправлять уведомления о новых заказах.
func NewHandler(service *Service, bot *tgbotapi.BotAPI, adminIDs []int64) *Handler {
	return &Handler{service: service, bot: bot, adminIDs: adminIDs}
}

// HandleCatalog обрабатывает команду !магазин — список товаров в продаже.
func (h *Handler) HandleCatalog(ctx context.Context, chatID int64) {
	products, err := h.service.Products(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка списка товаров")
		h.sendMessage(chatID, "❌ Магазин временно недоступен")
		return
	}

	if len(products) == 0 {
		h.sendMessage(chatID, "🏪 Магазин пуст — загляните позже")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏪 Магазин:\n\n")
	for _, p := range products {
		sb.WriteString(fmt.Sprintf("%d. %s — %s\n", p.ID, p.Title, common.FormatCoins(p.Price)))
	}
	sb.WriteString("\nКупить: !купить НОМЕР [количество]")
	h.sendMessage(chatID, sb.String())
}

// HandleBuy обрабатывает команду !купить 2 [3].
// Монеты списываются сразу, заказ уходит администратору на подтверждение.
func (h *Handler) HandleBuy(ctx context.Context, chatID int64, p *players.Player, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: !купить НОМЕР_ТОВАРА [количество]")
		return
	}

	productID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Номер товара должен быть числом")
		return
	}

	quantity := 1
	if len(args) >= 2 {
		quantity, err = strconv.Atoi(args[1])
		if err != nil || quantity < 1 {
			h.sendMessage(chatID, "❌ Количество должно быть положительным числом")
			return
		}
	}

	order, err := h.service.Buy(ctx, p.Code, productID, quantity)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrProductNotFound):
			h.sendMessage(chatID, "❌ Такого товара нет в продаже")
		case errors.Is(err, common.ErrInsufficientFunds):
			h.sendMessage(chatID, "❌ Недостаточно монет для покупки")
		case errors.Is(err, common.ErrInvalidAmount):
			h.sendMessage(chatID, "❌ Количество должно быть положительным числом")
		default:
			log.WithError(err).Error("Ошибка покупки")
			h.sendMessage(chatID, "❌ Не удалось оформить заказ, попробуйте ещё раз")
		}
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"🛒 Заказ №%d оформлен: %s x%d за %s\nОжидайте подтверждения администратора.",
		order.ID, order.ProductTitle, order.Quantity, common.FormatCoins(order.Total)))
	h.notifyAdmins(fmt.Sprintf(
		"🛒 Новый заказ №%d\nИгрок: %s (%s)\nТовар: %s x%d\nСумма: %s\n\nПодтвердить: подтвердить %d\nОтменить: отменить %d",
		order.ID, p.DisplayName, p.Code, order.ProductTitle, order.Quantity,
		common.FormatCoins(order.Total), order.ID, order.ID))
}

// HandleOrders обрабатывает команду !заказы — заказы игрока.
func (h *Handler) HandleOrders(ctx context.Context, chatID int64, p *players.Player) {
	orders, err := h.service.MyOrders(ctx, p.Code)
	if err != nil {
		log.WithError(err).Error("Ошибка списка заказов")
		h.sendMessage(chatID, "❌ Ошибка получения заказов")
		return
	}

	if len(orders) == 0 {
		h.sendMessage(chatID, "📦 У вас пока нет заказов")
		return
	}

	var sb strings.Builder
	sb.WriteString("📦 Ваши заказы:\n\n")
	for _, o := range orders {
		sb.WriteString(fmt.Sprintf("№%d %s x%d — %s [%s]\n",
			o.ID, o.ProductTitle, o.Quantity, common.FormatCoins(o.Total), statusRussian(o.Status)))
		if o.Status == OrderCancelled && o.AdminNote != nil {
			sb.WriteString(fmt.Sprintf("   Причина: %s\n", *o.AdminNote))
		}
	}
	h.sendMessage(chatID, sb.String())
}

// NotifyOrderResolved шлёт игроку личное сообщение о судьбе заказа.
func (h *Handler) NotifyOrderResolved(order *Order, tgUserID int64) {
	var text string
	switch order.Status {
	case OrderConfirmed:
		text = fmt.Sprintf("✅ Заказ №%d подтверждён: %s x%d\nЗаберите товар у учителя!",
			order.ID, order.ProductTitle, order.Quantity)
		if order.AdminNote != nil {
			text += fmt.Sprintf("\n💬 %s", *order.AdminNote)
		}
	case OrderCancelled:
		text = fmt.Sprintf("↩️ Заказ №%d отменён, %s возвращены на счёт.",
			order.ID, common.FormatCoins(order.Total))
		if order.AdminNote != nil {
			text += fmt.Sprintf("\nПричина: %s", *order.AdminNote)
		}
	default:
		return
	}
	h.sendMessage(tgUserID, text)
}

func statusRussian(status string) string {
	switch status {
	case OrderPending:
		return "ожидает"
	case OrderConfirmed:
		return "подтверждён"
	case OrderCancelled:
		return "отменён"
	}
	return status
}

func (h *Handler) notifyAdmins(text string) {
	for _, adminID := range h.adminIDs {
		h.sendMessage(adminID, text)
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

// Package admin — handlers.go обрабатывает взаимодействие с админ-панелью.
// Панель работает через Reply Keyboard в личных сообщениях.
// Поток: аутентификация → клавиатура → команда → пошаговый диалог.
package admin

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
	"godspace.ru/economy-game/internal/features/shop"
)

// Handler обрабатывает админ-команды.
type Handler struct {
	service     *Service
	shopService *shop.Service
	shopHandler *shop.Handler
	players     *players.Service
	scores      shop.Scores
	bot         *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, shopService *shop.Service, shopHandler *shop.Handler, playerService *players.Service, scores shop.Scores, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{
		service:     service,
		shopService: shopService,
		shopHandler: shopHandler,
		players:     playerService,
		scores:      scores,
		bot:         bot,
	}
}

// HandleAdminMessage обрабатывает любое сообщение от администратора в DM.
// Возвращает true, если сообщение обработано как админское.
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID int64, userID int64, text string) bool {
	if !h.service.IsAdmin(userID) {
		return false
	}

	// Проверяем состояние диалога
	state := h.service.GetState(userID)

	// Обрабатываем состояние ожидания пароля
	if state != nil && state.State == StateAwaitingPassword {
		h.handlePasswordInput(ctx, chatID, userID, text)
		return true
	}

	// /login ПАРОЛЬ — вход одной командой
	if fields := strings.Fields(text); len(fields) >= 2 &&
		strings.ToLower(strings.TrimLeft(fields[0], "!./")) == "login" {
		h.handlePasswordInput(ctx, chatID, userID, fields[1])
		return true
	}

	// Проверяем активную сессию
	if !h.service.HasActiveSession(ctx, userID) {
		// Нет сессии — запрашиваем пароль
		h.sendMessage(chatID, "🔐 Введите пароль для доступа к админ-панели:")
		h.service.SetState(userID, StateAwaitingPassword, nil)
		return true
	}

	// Обновляем активность сессии
	h.service.TouchSession(ctx, userID)

	// Обрабатываем текущее состояние
	if state != nil && state.State == StateCancelReason {
		h.handleCancelReason(ctx, chatID, userID, text)
		return true
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}

	// Команды панели принимаем и с префиксами (!заказы, /заказы)
	cmd := strings.ToLower(strings.TrimLeft(fields[0], "!./"))

	switch cmd {
	case "заказы":
		h.showPendingOrders(ctx, chatID)
		return true
	case "подтвердить":
		h.handleConfirm(ctx, chatID, userID, fields[1:])
		return true
	case "отменить":
		h.startCancel(ctx, chatID, userID, fields[1:])
		return true
	case "начислить":
		h.handleGrant(ctx, chatID, fields[1:])
		return true
	case "игрок":
		h.handleCreatePlayer(ctx, chatID, fields[1:])
		return true
	case "выход":
		if err := h.service.Logout(ctx, userID); err != nil {
			log.WithError(err).Error("Ошибка завершения админ-сессии")
		}
		h.sendMessage(chatID, "👋 Сессия завершена")
		return true
	case "админ", "панель", "помощь":
		h.showKeyboard(chatID)
		return true
	}

	return false
}

// handlePasswordInput обрабатывает ввод пароля.
func (h *Handler) handlePasswordInput(ctx context.Context, chatID int64, userID int64, password string) {
	err := h.service.VerifyPassword(ctx, userID, password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTooManyAttempts):
			h.sendMessage(chatID, "❌ Слишком много попыток, подождите 1 час")
		case errors.Is(err, common.ErrWrongPassword):
			h.sendMessage(chatID, "❌ Неверный пароль")
		default:
			log.WithError(err).Error("Ошибка проверки пароля")
			h.sendMessage(chatID, "❌ Ошибка аутентификации, попробуйте ещё раз")
		}
		h.service.ClearState(userID)
		return
	}

	h.service.ClearState(userID)
	h.sendMessage(chatID, "✅ Аутентификация успешна!")
	h.showKeyboard(chatID)
}

// showKeyboard отображает клавиатуру админ-панели.
func (h *Handler) showKeyboard(chatID int64) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Заказы"),
			tgbotapi.NewKeyboardButton("Помощь"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Выход"),
		),
	)

	text := "✅ Админ-панель открыта\n\n" +
		"Команды:\n" +
		"• заказы — заказы, ожидающие решения\n" +
		"• подтвердить НОМЕР [комментарий]\n" +
		"• отменить НОМЕР — с указанием причины\n" +
		"• начислить КОД СУММА — выдать монеты игроку\n" +
		"• игрок КОД Имя / КЛАСС — завести игрока\n" +
		"• выход — завершить сессию"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки клавиатуры")
	}
}

// showPendingOrders показывает заказы в ожидании решения.
func (h *Handler) showPendingOrders(ctx context.Context, chatID int64) {
	orders, err := h.shopService.PendingOrders(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка списка заказов")
		h.sendMessage(chatID, "❌ Ошибка получения заказов")
		return
	}

	if len(orders) == 0 {
		h.sendMessage(chatID, "📦 Нет заказов, ожидающих решения")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📦 Заказы в ожидании (%d):\n\n", len(orders)))
	for _, o := range orders {
		sb.WriteString(fmt.Sprintf("№%d | %s | %s x%d | %s | %s\n",
			o.ID, o.PlayerCode, o.ProductTitle, o.Quantity,
			common.FormatCoins(o.Total), common.FormatDateTime(o.CreatedAt)))
	}
	sb.WriteString("\nподтвердить НОМЕР [комментарий] / отменить НОМЕР")
	h.sendMessage(chatID, sb.String())
}

// handleConfirm — команда «подтвердить N [комментарий]».
func (h *Handler) handleConfirm(ctx context.Context, chatID int64, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: подтвердить НОМЕР_ЗАКАЗА [комментарий]")
		return
	}

	orderID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Номер заказа должен быть числом")
		return
	}
	note := strings.Join(args[1:], " ")

	order, err := h.shopService.Confirm(ctx, orderID, userID, note)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrOrderNotPending):
			h.sendMessage(chatID, "❌ Заказ уже обработан или не существует")
		default:
			log.WithError(err).Error("Ошибка подтверждения заказа")
			h.sendMessage(chatID, "❌ Не удалось подтвердить заказ")
		}
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Заказ №%d подтверждён", order.ID))
	h.notifyBuyer(ctx, order)
}

// startCancel — команда «отменить N»: запоминает номер и ждёт причину.
func (h *Handler) startCancel(ctx context.Context, chatID int64, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: отменить НОМЕР_ЗАКАЗА")
		return
	}

	orderID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Номер заказа должен быть числом")
		return
	}

	order, err := h.shopService.GetOrder(ctx, orderID)
	if err != nil || order.Status != shop.OrderPending {
		h.sendMessage(chatID, "❌ Заказ уже обработан или не существует")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("Укажите причину отмены заказа №%d:", orderID))
	h.service.SetState(userID, StateCancelReason, orderID)
}

// handleCancelReason — ввод причины отмены; причина обязательна.
func (h *Handler) handleCancelReason(ctx context.Context, chatID int64, userID int64, text string) {
	state := h.service.GetState(userID)
	orderID := state.Data.(int64)

	reason := strings.TrimSpace(text)
	if reason == "" {
		h.sendMessage(chatID, "❌ Причина не может быть пустой")
		return
	}

	order, err := h.shopService.Cancel(ctx, orderID, userID, reason)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrOrderNotPending):
			h.sendMessage(chatID, "❌ Заказ уже обработан")
		default:
			log.WithError(err).Error("Ошибка отмены заказа")
			h.sendMessage(chatID, "❌ Не удалось отменить заказ")
		}
		h.service.ClearState(userID)
		return
	}

	h.service.ClearState(userID)
	h.sendMessage(chatID, fmt.Sprintf("↩️ Заказ №%d отменён, %s возвращены игроку %s",
		order.ID, common.FormatCoins(order.Total), order.PlayerCode))
	h.notifyBuyer(ctx, order)
}

// handleGrant — команда «начислить КОД СУММА».
func (h *Handler) handleGrant(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "❌ Формат: начислить КОД_ИГРОКА СУММА")
		return
	}

	code := strings.ToUpper(args[0])
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount == 0 {
		h.sendMessage(chatID, "❌ Сумма должна быть ненулевым числом")
		return
	}

	p, err := h.players.GetByCode(ctx, code)
	if err != nil {
		h.sendMessage(chatID, "❌ Игрок с таким кодом не найден")
		return
	}

	if err := h.players.GrantCoins(ctx, code, amount, "Начисление администратора"); err != nil {
		log.WithError(err).Error("Ошибка начисления")
		h.sendMessage(chatID, "❌ Не удалось начислить монеты")
		return
	}
	h.scores.Sync(ctx, code)

	h.sendMessage(chatID, fmt.Sprintf("✅ %s игроку %s (%s)",
		common.FormatDelta(amount), p.Code, p.DisplayName))
	if p.TelegramUserID != nil {
		h.sendMessage(*p.TelegramUserID,
			fmt.Sprintf("🎁 Администратор изменил ваш баланс: %s", common.FormatDelta(amount)))
	}
}

// handleCreatePlayer — команда «игрок КОД Имя Фамилия / 7Б».
// Класс отделяется слешем, чтобы имя могло состоять из нескольких слов.
func (h *Handler) handleCreatePlayer(ctx context.Context, chatID int64, args []string) {
	rest := strings.Join(args, " ")
	code, rest, _ := strings.Cut(rest, " ")
	name, class, hasClass := strings.Cut(rest, "/")
	if code == "" || strings.TrimSpace(name) == "" || !hasClass || strings.TrimSpace(class) == "" {
		h.sendMessage(chatID, "❌ Формат: игрок КОД Имя Фамилия / КЛАСС")
		return
	}

	p, err := h.players.CreatePlayer(ctx, code,
		strings.TrimSpace(name), strings.TrimSpace(class), h.service.cfg.GameStartingCoins)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrCodeTaken):
			h.sendMessage(chatID, "❌ Такой код уже существует")
		default:
			log.WithError(err).Error("Ошибка создания игрока")
			h.sendMessage(chatID, "❌ Не удалось создать игрока")
		}
		return
	}

	h.scores.Sync(ctx, p.Code)
	h.sendMessage(chatID, fmt.Sprintf("✅ Игрок %s (%s, %s) создан, на счету %s",
		p.Code, p.DisplayName, p.ClassName, common.FormatCoins(p.Coins)))
}

// notifyBuyer сообщает игроку о судьбе его заказа в личку.
func (h *Handler) notifyBuyer(ctx context.Context, order *shop.Order) {
	p, err := h.players.GetByCode(ctx, order.PlayerCode)
	if err != nil || p.TelegramUserID == nil {
		return
	}
	h.shopHandler.NotifyOrderResolved(order, *p.TelegramUserID)
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

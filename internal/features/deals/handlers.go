// Package deals — handlers.go обрабатывает команду !сделка и нажатия
// inline-кнопок «честно/обман» вторым игроком.
package deals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"godspace.ru/economy-game/internal/common"
	"godspace.ru/economy-game/internal/features/players"
)

// CallbackPrefix — префикс callback-данных кнопок ответа на сделку.
// Формат: deal:<uuid>:<cooperate|cheat>
const CallbackPrefix = "deal:"

// Handler обрабатывает команды и callback'и сделок.
type Handler struct {
	service        *Service
	playersService *players.Service
	bot            *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик сделок.
func NewHandler(service *Service, playersService *players.Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, playersService: playersService, bot: bot}
}

// HandleProposal обрабатывает команду !сделка КОД честно|обман
// (вместо кода можно указать @username).
//
// После создания сделки второй игрок получает в ЛС кнопки выбора,
// а инициатор — сообщение об ожидании. Ожидание идёт в отдельной
// горутине: опрос каждые 2 секунды, не дольше таймаута ответа.
func (h *Handler) HandleProposal(ctx context.Context, chatID int64, initiator *players.Player, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "❌ Формат: !сделка КОД честно|обман")
		return
	}

	choice, ok := ParseChoice(strings.ToLower(args[1]))
	if !ok {
		h.sendMessage(chatID, "❌ Выбор: честно или обман")
		return
	}

	counterpart, err := h.findCounterpart(ctx, args[0])
	if err != nil {
		h.sendMessage(chatID, "❌ Игрок не найден")
		return
	}

	d, err := h.service.Propose(ctx, initiator, counterpart.Code, choice)
	if err != nil {
		h.sendMessage(chatID, proposalErrorText(err))
		return
	}

	// Приглашение второму игроку — в ЛС, с кнопками выбора
	inviteID, ok := h.sendInvite(counterpart, initiator, d)
	if !ok {
		h.sendMessage(chatID, "⚠️ Сделка создана, но доставить приглашение не удалось. Ждём ответа или таймаута.")
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"⏳ Предложение отправлено %s. Ждём ответа %d сек — молчание засчитывается как обман.",
		counterpart.DisplayName, int(h.service.ResponseTimeout().Seconds())))

	go h.awaitAndReport(ctx, chatID, initiator, counterpart, d.ID, inviteID)
}

// awaitAndReport ждёт исход сделки и рассылает результат обеим сторонам.
func (h *Handler) awaitAndReport(ctx context.Context, chatID int64, initiator, counterpart *players.Player, dealID uuid.UUID, inviteID int) {
	resolved, timedOut, err := h.service.AwaitResolution(ctx, dealID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.WithError(err).WithField("deal", dealID).Error("Ошибка ожидания сделки")
		h.sendMessage(chatID, "❌ Сделка сорвалась, попробуйте ещё раз")
		return
	}

	h.sendMessage(chatID, outcomeText(resolved, true, timedOut))

	if timedOut && counterpart.TelegramUserID != nil {
		// Убираем кнопки из приглашения и сообщаем о дефолте
		if inviteID != 0 {
			edit := tgbotapi.NewEditMessageText(*counterpart.TelegramUserID, inviteID,
				"⌛ Время вышло — засчитан обман.")
			if _, err := h.bot.Send(edit); err != nil {
				log.WithError(err).Debug("Не удалось обновить приглашение")
			}
		}
		h.sendToUser(*counterpart.TelegramUserID, outcomeText(resolved, false, timedOut))
	}
}

// HandleChoiceCallback обрабатывает нажатие кнопки «честно/обман».
// data: deal:<uuid>:<choice>
func (h *Handler) HandleChoiceCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, responder *players.Player) {
	parts := strings.Split(cq.Data, ":")
	if len(parts) != 3 {
		h.answerCallback(cq.ID, "Некорректные данные кнопки")
		return
	}

	dealID, err := uuid.Parse(parts[1])
	if err != nil {
		h.answerCallback(cq.ID, "Некорректный номер сделки")
		return
	}
	choice, ok := ParseChoice(parts[2])
	if !ok {
		h.answerCallback(cq.ID, "Некорректный выбор")
		return
	}

	resolved, err := h.service.Respond(ctx, responder, dealID, choice)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrDealAlreadyResolved):
			h.answerCallback(cq.ID, "Сделка уже завершена")
		case errors.Is(err, common.ErrNotYourDeal):
			h.answerCallback(cq.ID, "Эта сделка адресована не вам")
		case errors.Is(err, common.ErrDealNotFound):
			h.answerCallback(cq.ID, "Сделка не найдена")
		default:
			log.WithError(err).Error("Ошибка ответа на сделку")
			h.answerCallback(cq.ID, "Ошибка, попробуйте ещё раз")
		}
		return
	}

	h.answerCallback(cq.ID, "Выбор принят")

	// Заменяем приглашение результатом (кнопки исчезают)
	if cq.Message != nil {
		edit := tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID,
			outcomeText(resolved, false, false))
		if _, err := h.bot.Send(edit); err != nil {
			log.WithError(err).Debug("Не удалось обновить приглашение")
		}
	}
}

// findCounterpart ищет второго игрока по коду или @username.
func (h *Handler) findCounterpart(ctx context.Context, arg string) (*players.Player, error) {
	arg = strings.TrimSpace(arg)
	if name, found := strings.CutPrefix(arg, "@"); found {
		return h.playersService.GetByUsername(ctx, name)
	}
	if p, err := h.playersService.GetByCode(ctx, arg); err == nil {
		return p, nil
	}
	return h.playersService.GetByUsername(ctx, arg)
}

// sendInvite отправляет второму игроку приглашение с кнопками выбора.
// Возвращает ID сообщения (для последующего редактирования) и признак успеха.
func (h *Handler) sendInvite(counterpart, initiator *players.Player, d *Deal) (int, bool) {
	if counterpart.TelegramUserID == nil {
		return 0, false
	}

	text := fmt.Sprintf(
		"🤝 %s (%s) предлагает вам сделку!\n\nВыберите ответ — на размышление %d сек, молчание = обман.",
		initiator.DisplayName, initiator.ClassName, int(h.service.ResponseTimeout().Seconds()))

	msg := tgbotapi.NewMessage(*counterpart.TelegramUserID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤝 Честно", CallbackPrefix+d.ID.String()+":"+string(ChoiceCooperate)),
			tgbotapi.NewInlineKeyboardButtonData("😈 Обман", CallbackPrefix+d.ID.String()+":"+string(ChoiceCheat)),
		),
	)

	sent, err := h.bot.Send(msg)
	if err != nil {
		log.WithError(err).WithField("deal", d.ID).Warn("Не удалось отправить приглашение")
		return 0, false
	}
	return sent.MessageID, true
}

// outcomeText формирует текст результата для одной из сторон.
func outcomeText(d *Deal, forInitiator, timedOut bool) string {
	myChoice, theirChoice := d.InitiatorChoice, ChoiceCheat
	myDelta, theirDelta := d.InitiatorDelta, d.CounterpartDelta
	theirCode := d.CounterpartCode
	if d.CounterpartChoice != nil {
		theirChoice = *d.CounterpartChoice
	}
	if !forInitiator {
		myChoice, theirChoice = theirChoice, myChoice
		myDelta, theirDelta = theirDelta, myDelta
		theirCode = d.InitiatorCode
	}

	var sb strings.Builder
	sb.WriteString("🏁 Сделка завершена!\n")
	if timedOut {
		sb.WriteString("⌛ Ответа не было — засчитан обман.\n")
	}
	sb.WriteString(fmt.Sprintf("Вы: %s, %s: %s\n", myChoice.Russian(), theirCode, theirChoice.Russian()))
	sb.WriteString(fmt.Sprintf("Ваш результат: %s (у %s: %s)",
		common.FormatDelta(myDelta), theirCode, common.FormatDelta(theirDelta)))
	return sb.String()
}

// proposalErrorText переводит ошибки создания сделки в сообщения игроку.
func proposalErrorText(err error) string {
	switch {
	case errors.Is(err, common.ErrSelfDeal):
		return "❌ Нельзя заключить сделку с самим собой"
	case errors.Is(err, common.ErrInsufficientFunds):
		return "❌ На счёте нет монет для сделки"
	case errors.Is(err, common.ErrCounterpartUnavailable):
		return "❌ Игрок сейчас недоступен (давно не появлялся в игре)"
	case errors.Is(err, common.ErrDealAlreadyActive):
		return "❌ У вас уже есть активная сделка — дождитесь её завершения"
	case errors.Is(err, common.ErrRateLimitExceeded):
		return "❌ Лимит сделок с этим игроком исчерпан"
	default:
		log.WithError(err).Error("Ошибка создания сделки")
		return "❌ Не удалось создать сделку, попробуйте ещё раз"
	}
}

func (h *Handler) answerCallback(callbackID, text string) {
	cb := tgbotapi.NewCallback(callbackID, text)
	if _, err := h.bot.Request(cb); err != nil {
		log.WithError(err).Debug("Ошибка ответа на callback")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

func (h *Handler) sendToUser(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
	}
}

// Package players — handlers.go обрабатывает команды:
// !код (вход), !выход, !баланс, !история, !игроки (ростер).
package players

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"godspace.ru/economy-game/internal/common"
)

// PairCounter отдаёт счётчики сделок между упорядоченной парой игроков.
// Реализуется сервисом сделок; интерфейс разрывает цикл импортов.
type PairCounter interface {
	PairCount(ctx context.Context, initiatorCode, counterpartCode string) (outgoing, incoming int, err error)
}

// Handler обрабатывает команды игроков.
type Handler struct {
	service   *Service
	pairs     PairCounter
	bot       *tgbotapi.BotAPI
	pairLimit int
}

// NewHandler создаёт обработчик команд игроков.
func NewHandler(service *Service, pairs PairCounter, bot *tgbotapi.BotAPI, pairLimit int) *Handler {
	return &Handler{service: service, pairs: pairs, bot: bot, pairLimit: pairLimit}
}

// HandleLogin обрабатывает команду !код ABC12.
// Привязывает Telegram-аккаунт отправителя к коду игрока.
func (h *Handler) HandleLogin(ctx context.Context, chatID, userID int64, username, displayName string, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: !код ВАШ_КОД")
		return
	}

	code := strings.ToUpper(strings.TrimSpace(args[0]))
	p, err := h.service.Login(ctx, userID, username, displayName, code)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrCodeNotFound):
			h.sendMessage(chatID, "❌ Такого кода нет, проверьте написание")
		case errors.Is(err, common.ErrCodeTaken):
			h.sendMessage(chatID, "❌ Этот код уже занят другим игроком")
		default:
			log.WithError(err).Error("Ошибка входа по коду")
			h.sendMessage(chatID, "❌ Не удалось войти, попробуйте ещё раз")
		}
		return
	}

	text := fmt.Sprintf("✅ Привет, %s! Класс: %s\n💰 Баланс: %s",
		p.DisplayName, p.ClassName, common.FormatCoins(p.Coins))
	h.sendMessage(chatID, text)
}

// HandleLogout обрабатывает команду !выход.
func (h *Handler) HandleLogout(ctx context.Context, chatID, userID int64) {
	if err := h.service.Logout(ctx, userID); err != nil {
		if errors.Is(err, common.ErrNotLoggedIn) {
			h.sendMessage(chatID, "❌ Вы и так не в игре")
			return
		}
		log.WithError(err).Error("Ошибка выхода")
		h.sendMessage(chatID, "❌ Не удалось выйти")
		return
	}
	h.sendMessage(chatID, "👋 Вы вышли из игры. Код снова свободен.")
}

// HandleBalance обрабатывает команду !баланс — перечитывает
// авторитетный баланс из БД.
func (h *Handler) HandleBalance(ctx context.Context, chatID int64, p *Player) {
	coins, err := h.service.RefreshBalance(ctx, p.Code)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		h.sendMessage(chatID, "❌ Ошибка получения баланса")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("💰 Баланс: %s", common.FormatCoins(coins)))
}

// HandleRoster обрабатывает команду !игроки — список активных игроков
// со счётчиком сделок по паре (x/5) и отметкой «онлайн».
func (h *Handler) HandleRoster(ctx context.Context, chatID int64, p *Player) {
	active, err := h.service.ListActive(ctx, p.Code)
	if err != nil {
		log.WithError(err).Error("Ошибка списка игроков")
		h.sendMessage(chatID, "❌ Ошибка получения списка игроков")
		return
	}

	if len(active) == 0 {
		h.sendMessage(chatID, "😴 Сейчас нет активных игроков")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎮 Активные игроки (%d):\n\n", len(active)))
	for _, other := range active {
		out, in, err := h.pairs.PairCount(ctx, p.Code, other.Code)
		if err != nil {
			log.WithError(err).WithField("pair", other.Code).Warn("PairCount failed")
		}

		marker := "⚪"
		if h.service.IsAvailable(ctx, other.Code) {
			marker = "🟢"
		}
		sb.WriteString(fmt.Sprintf("%s %s (%s) — сделки %d/%d\n",
			marker, other.DisplayName, other.ClassName, out+in, h.pairLimit))
	}
	sb.WriteString("\nСделка: !сделка КОД честно|обман")
	h.sendMessage(chatID, sb.String())
}

// HandleHistory обрабатывает команду !история — последние операции.
func (h *Handler) HandleHistory(ctx context.Context, chatID int64, p *Player) {
	txs, err := h.service.GetTransactions(ctx, p.Code, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка получения истории")
		h.sendMessage(chatID, "❌ Ошибка получения истории")
		return
	}

	if len(txs) == 0 {
		h.sendMessage(chatID, "📋 У вас пока нет операций")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Последние %d операций:\n\n", len(txs)))
	for i, tx := range txs {
		sb.WriteString(fmt.Sprintf("%d. %s | %s | %s\n",
			i+1, common.FormatDateTime(tx.CreatedAt), common.FormatDelta(tx.SignedAmount(p.Code)), tx.Description))
	}
	h.sendMessage(chatID, sb.String())
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

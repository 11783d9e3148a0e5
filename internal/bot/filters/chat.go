// Package filters ограничивает, где бот реагирует на сообщения:
// чат класса и личные сообщения.
package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

type ChatFilter struct {
	classChatID int64
	adminIDs    []int64
}

func NewChatFilter(classChatID int64, adminIDs []int64) *ChatFilter {
	return &ChatFilter{
		classChatID: classChatID,
		adminIDs:    adminIDs,
	}
}

// CheckAccess решает, обрабатываем ли сообщение.
// Разрешены: чат класса и личка. Чужие групповые чаты игнорируем —
// привязка к коду и так защищает игровые операции.
func (f *ChatFilter) CheckAccess(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (service/channel message?)")
		return false
	}
	if f.classChatID == 0 {
		log.WithField("component", "ChatFilter").Error("classChatID is 0 (config bug)")
		return false
	}

	chatID := message.Chat.ID

	logger := log.WithFields(log.Fields{
		"component":     "ChatFilter",
		"chat_id":       chatID,
		"chat_type":     message.Chat.Type,
		"user_id":       message.From.ID,
		"class_chat_id": f.classChatID,
	})

	// 1) Чат класса
	if chatID == f.classChatID {
		logger.Debug("allow: class chat")
		return true
	}

	// 2) Личка: сделки, заказы и админ-панель идут через DM
	if message.Chat.IsPrivate() {
		logger.Debug("allow: private")
		return true
	}

	// 3) Остальные чаты игнорируем
	logger.Info("deny: not class chat and not private")
	return false
}

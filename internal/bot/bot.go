// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go принимает апдейты, применяет фильтры и маршрутизирует команды.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"godspace.ru/economy-game/internal/bot/filters"
	"godspace.ru/economy-game/internal/bot/middleware"
	"godspace.ru/economy-game/internal/config"
	"godspace.ru/economy-game/internal/features/admin"
	"godspace.ru/economy-game/internal/features/deals"
	"godspace.ru/economy-game/internal/features/deposits"
	"godspace.ru/economy-game/internal/features/players"
	"godspace.ru/economy-game/internal/features/rating"
	"godspace.ru/economy-game/internal/features/shop"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	playerService *players.Service

	playerHandler  *players.Handler
	dealHandler    *deals.Handler
	ratingHandler  *rating.Handler
	shopHandler    *shop.Handler
	depositHandler *deposits.Handler
	adminHandler   *admin.Handler

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	playerService *players.Service,
	playerHandler *players.Handler,
	dealHandler *deals.Handler,
	ratingHandler *rating.Handler,
	shopHandler *shop.Handler,
	depositHandler *deposits.Handler,
	adminHandler *admin.Handler,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:            api,
		cfg:            cfg,
		chatFilter:     chatFilter,
		rateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		playerService:  playerService,
		playerHandler:  playerHandler,
		dealHandler:    dealHandler,
		ratingHandler:  ratingHandler,
		shopHandler:    shopHandler,
		depositHandler: depositHandler,
		adminHandler:   adminHandler,
		parser:         NewCommandParser(),
		inflight:       make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	// Нажатия инлайн-кнопок (ответ на приглашение к сделке)
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	// Обрабатываем обычные сообщения
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	message := update.Message

	// Логируем входящее
	middleware.LogMessage(message)

	// Проверяем доступ (чат класса или личка)
	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	// Rate limiting
	if message.From != nil && !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	// Продлеваем присутствие, если отправитель привязан к коду
	p, err := b.playerService.Current(ctx, userID)
	if err == nil {
		b.playerService.TouchActivity(ctx, p.Code)
	}

	// В DM проверяем админ-панель
	if message.Chat.IsPrivate() {
		if b.adminHandler.HandleAdminMessage(ctx, chatID, userID, message.Text) {
			return
		}
	}

	// Парсим команду
	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("parsed command")

	b.routeCommand(ctx, chatID, userID, message, cmd, args, p)
}

// handleCallback обрабатывает нажатия инлайн-кнопок.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || cq.Data == "" {
		return
	}
	middleware.LogCallback(cq)

	if !strings.HasPrefix(cq.Data, deals.CallbackPrefix) {
		return
	}

	responder, err := b.playerService.Current(ctx, cq.From.ID)
	if err != nil {
		b.answerCallback(cq.ID, "Сначала войдите в игру: !код ВАШ_КОД")
		return
	}
	b.playerService.TouchActivity(ctx, responder.Code)
	b.dealHandler.HandleChoiceCallback(ctx, cq, responder)
}

// routeCommand маршрутизирует команду к нужному обработчику.
// p может быть nil — не все команды требуют входа.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, message *tgbotapi.Message, cmd string, args []string, p *players.Player) {
	switch cmd {
	case "start", "help", "помощь":
		b.sendMessage(chatID, helpText(b.cfg))

	case "код", "login":
		displayName := strings.TrimSpace(message.From.FirstName + " " + message.From.LastName)
		b.playerHandler.HandleLogin(ctx, chatID, userID, message.From.UserName, displayName, args)

	case "выход", "logout":
		b.playerHandler.HandleLogout(ctx, chatID, userID)

	case "рейтинг", "топ":
		b.ratingHandler.HandleLeaderboard(ctx, chatID)

	default:
		// Остальные команды требуют входа по коду
		if p == nil {
			b.sendMessage(chatID, "❌ Сначала войдите в игру: !код ВАШ_КОД")
			return
		}
		b.routePlayerCommand(ctx, chatID, cmd, args, p)
	}
}

// routePlayerCommand — команды, доступные только вошедшим игрокам.
func (b *Bot) routePlayerCommand(ctx context.Context, chatID int64, cmd string, args []string, p *players.Player) {
	switch cmd {
	case "баланс":
		b.playerHandler.HandleBalance(ctx, chatID, p)

	case "игроки":
		b.playerHandler.HandleRoster(ctx, chatID, p)

	case "история":
		b.playerHandler.HandleHistory(ctx, chatID, p)

	case "сделка":
		b.dealHandler.HandleProposal(ctx, chatID, p, args)

	case "магазин":
		if b.cfg.FeatureShopEnabled {
			b.shopHandler.HandleCatalog(ctx, chatID)
		} else {
			b.sendMessage(chatID, "🏪 Магазин временно закрыт")
		}

	case "купить":
		if b.cfg.FeatureShopEnabled {
			b.shopHandler.HandleBuy(ctx, chatID, p, args)
		} else {
			b.sendMessage(chatID, "🏪 Магазин временно закрыт")
		}

	case "заказы":
		if b.cfg.FeatureShopEnabled {
			b.shopHandler.HandleOrders(ctx, chatID, p)
		}

	case "вклад":
		if b.cfg.FeatureDepositsEnabled {
			b.depositHandler.HandleOpen(ctx, chatID, p, args)
		} else {
			b.sendMessage(chatID, "🏦 Вклады временно недоступны")
		}

	case "вклады":
		if b.cfg.FeatureDepositsEnabled {
			b.depositHandler.HandleList(ctx, chatID, p)
		}
	}
}

func helpText(cfg *config.Config) string {
	var sb strings.Builder
	sb.WriteString("🎮 Игра «Монеты»\n\n")
	sb.WriteString("• !код ВАШ_КОД — войти в игру\n")
	sb.WriteString("• !баланс — сколько монет на счету\n")
	sb.WriteString("• !игроки — кто сейчас в игре\n")
	sb.WriteString("• !сделка КОД честно|обман — предложить сделку\n")
	sb.WriteString("• !рейтинг — таблица лидеров\n")
	sb.WriteString("• !история — последние операции\n")
	if cfg.FeatureShopEnabled {
		sb.WriteString("• !магазин, !купить, !заказы\n")
	}
	if cfg.FeatureDepositsEnabled {
		sb.WriteString("• !вклад СУММА надёжный|рискованный, !вклады\n")
	}
	sb.WriteString("• !выход — освободить код")
	return sb.String()
}

// answerCallback снимает «часики» с инлайн-кнопки.
func (b *Bot) answerCallback(callbackID, text string) {
	cb := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(cb); err != nil {
		log.WithError(err).Debug("Ошибка ответа на callback")
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

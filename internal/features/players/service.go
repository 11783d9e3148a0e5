// Package players — service.go содержит бизнес-логику входа по коду,
// списка активных игроков и обновления баланса.
package players

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Service управляет игроками и их сессиями.
type Service struct {
	repo     *Repository
	presence *PresenceTracker
	window   time.Duration
}

// NewService создаёт сервис игроков.
func NewService(repo *Repository, presence *PresenceTracker, window time.Duration) *Service {
	return &Service{repo: repo, presence: presence, window: window}
}

// Login привязывает Telegram-аккаунт к короткому коду.
// Это единственная «сессия», которой владеет клиентская сторона.
func (s *Service) Login(ctx context.Context, tgUserID int64, username, displayName, code string) (*Player, error) {
	p, err := s.repo.BindTelegram(ctx, code, tgUserID, username, displayName)
	if err != nil {
		return nil, err
	}
	s.presence.Touch(ctx, p.Code)

	log.WithFields(log.Fields{
		"code":  p.Code,
		"tg_id": tgUserID,
	}).Info("Игрок вошёл по коду")
	return p, nil
}

// Logout отвязывает аккаунт и снимает отметку присутствия.
func (s *Service) Logout(ctx context.Context, tgUserID int64) error {
	p, err := s.repo.GetByTelegramID(ctx, tgUserID)
	if err != nil {
		return err
	}
	if err := s.repo.UnbindTelegram(ctx, tgUserID); err != nil {
		return err
	}
	s.presence.Forget(ctx, p.Code)
	return nil
}

// Current возвращает игрока по Telegram-аккаунту.
// Контекст текущего игрока загружается на каждый апдейт заново —
// глобального currentUser в процессе нет.
func (s *Service) Current(ctx context.Context, tgUserID int64) (*Player, error) {
	return s.repo.GetByTelegramID(ctx, tgUserID)
}

// TouchActivity продлевает присутствие игрока (Redis + отметка в БД).
func (s *Service) TouchActivity(ctx context.Context, code string) {
	s.presence.Touch(ctx, code)
	if err := s.repo.Touch(ctx, code); err != nil {
		log.WithError(err).WithField("code", code).Warn("Touch failed")
	}
}

// IsAvailable сообщает, доступен ли игрок для сделки.
// Сначала спрашиваем Redis; если он молчит — решаем по last_active из БД.
func (s *Service) IsAvailable(ctx context.Context, code string) bool {
	if online, ok := s.presence.IsOnline(ctx, code); ok {
		return online
	}
	p, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return false
	}
	return time.Since(p.LastActive) <= s.window
}

// ListActive возвращает активных игроков, исключая самого запрашивающего.
func (s *Service) ListActive(ctx context.Context, selfCode string) ([]*Player, error) {
	all, err := s.repo.ListBound(ctx)
	if err != nil {
		return nil, err
	}
	return FilterActive(all, selfCode, s.window, time.Now()), nil
}

// RefreshBalance перечитывает авторитетный баланс из БД.
func (s *Service) RefreshBalance(ctx context.Context, code string) (int64, error) {
	return s.repo.GetCoins(ctx, code)
}

// GetByCode возвращает игрока по коду.
func (s *Service) GetByCode(ctx context.Context, code string) (*Player, error) {
	return s.repo.GetByCode(ctx, code)
}

// GetByUsername возвращает игрока по Telegram-username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*Player, error) {
	return s.repo.GetByUsername(ctx, username)
}

// GetTransactions возвращает последние операции игрока.
func (s *Service) GetTransactions(ctx context.Context, code string, limit int) ([]*Transaction, error) {
	return s.repo.GetTransactions(ctx, code, limit)
}

// CreatePlayer заводит нового игрока (делается администратором перед игрой).
func (s *Service) CreatePlayer(ctx context.Context, code, displayName, className string, startingCoins int64) (*Player, error) {
	p, err := s.repo.Create(ctx, code, displayName, className, startingCoins)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"code":  p.Code,
		"coins": p.Coins,
	}).Info("Создан игрок")
	return p, nil
}

// GrantCoins начисляет монеты игроку (ручное начисление администратора).
func (s *Service) GrantCoins(ctx context.Context, code string, amount int64, description string) error {
	return s.repo.AdjustCoins(ctx, code, amount, TxAdminGrant, description)
}

// FilterActive оставляет игроков, чья последняя активность попадает в окно,
// и никогда не включает самого запрашивающего.
// Чистая функция: список и момент времени приходят снаружи.
func FilterActive(all []*Player, selfCode string, window time.Duration, now time.Time) []*Player {
	out := make([]*Player, 0, len(all))
	for _, p := range all {
		if p.Code == selfCode {
			continue
		}
		if now.Sub(p.LastActive) > window {
			continue
		}
		out = append(out, p)
	}
	return out
}

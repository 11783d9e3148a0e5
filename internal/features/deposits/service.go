package deposits

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"godspace.ru/economy-game/internal/common"
	"godspace.ru/economy-game/internal/config"
	"godspace.ru/economy-game/internal/metrics"
)

// Scores обновляет кэш рейтинга после изменения балансов.
type Scores interface {
	Sync(ctx context.Context, codes ...string)
}

// Notifier сообщает игроку о закрытии вклада. Реализуется
// обработчиками; планировщик зовёт его из фонового обхода.
type Notifier func(ctx context.Context, d *Deposit, profit int64)

type Service struct {
	repo   *Repository
	scores Scores
	cfg    *config.Config
	logger *logrus.Logger

	// draw подменяется в тестах на детерминированный источник
	draw func() float64

	notify Notifier
}

func NewService(repo *Repository, scores Scores, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		repo:   repo,
		scores: scores,
		cfg:    cfg,
		logger: logger,
		draw:   rand.Float64,
	}
}

// SetNotifier задаёт колбэк уведомления игрока о закрытии вклада.
func (s *Service) SetNotifier(n Notifier) { s.notify = n }

// Open открывает вклад: списывает сумму сразу, срок и ожидаемая
// прибыль зависят от типа.
func (s *Service) Open(ctx context.Context, playerCode string, amount int64, depositType string) (*Deposit, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if depositType != TypeSafe && depositType != TypeRisky {
		return nil, common.ErrInvalidDepositType
	}

	now := time.Now()
	d := &Deposit{
		PlayerCode: playerCode,
		Amount:     amount,
		Type:       depositType,
		StartTime:  now,
	}
	if depositType == TypeSafe {
		profit := SafeProfit(amount, s.cfg.DepositSafeRatePct)
		d.ExpectedProfit = &profit
		d.EndTime = now.Add(s.cfg.DepositSafeTerm)
	} else {
		d.EndTime = now.Add(s.cfg.DepositRiskyTerm)
	}

	if err := s.repo.Open(ctx, d); err != nil {
		return nil, err
	}

	s.scores.Sync(ctx, playerCode)
	s.logger.WithFields(logrus.Fields{
		"deposit_id": d.ID,
		"player":     playerCode,
		"amount":     amount,
		"type":       depositType,
	}).Info("Открыт вклад")
	return d, nil
}

// List возвращает вклады игрока.
func (s *Service) List(ctx context.Context, playerCode string) ([]*Deposit, error) {
	return s.repo.ListByPlayer(ctx, playerCode, 10)
}

// SweepExpired закрывает все вклады с истёкшим сроком. Вызывается
// планировщиком раз в минуту; результат рискованного вклада
// разыгрывается в момент закрытия.
func (s *Service) SweepExpired(ctx context.Context) error {
	expired, err := s.repo.FindExpiredActive(ctx)
	if err != nil {
		return err
	}

	for _, d := range expired {
		profit := ComputeProfit(d.Type, d.Amount, s.cfg.DepositSafeRatePct, s.draw())
		if err := s.repo.Resolve(ctx, d.ID, profit); err != nil {
			// Уже закрыт параллельным обходом — пропускаем молча
			if err == common.ErrDepositAlreadyResolved {
				continue
			}
			s.logger.WithError(err).WithField("deposit_id", d.ID).Error("Не удалось закрыть вклад")
			continue
		}

		metrics.DepositsResolved.WithLabelValues(branchLabel(d.Type, profit)).Inc()
		s.scores.Sync(ctx, d.PlayerCode)
		s.logger.WithFields(logrus.Fields{
			"deposit_id": d.ID,
			"player":     d.PlayerCode,
			"profit":     profit,
		}).Info("Вклад закрыт")

		if s.notify != nil {
			s.notify(ctx, d, profit)
		}
	}
	return nil
}

func branchLabel(depositType string, profit int64) string {
	if depositType == TypeSafe {
		return "safe"
	}
	if profit >= 0 {
		return "risky_win"
	}
	return "risky_loss"
}

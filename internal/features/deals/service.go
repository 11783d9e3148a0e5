// Package deals — service.go координирует жизненный цикл сделки:
// проверки при создании, ожидание ответа, завершение с выплатами.
package deals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"godspace.ru/economy-game/internal/common"
	"godspace.ru/economy-game/internal/config"
	"godspace.ru/economy-game/internal/features/players"
	"godspace.ru/economy-game/internal/metrics"
)

// Store — операции репозитория, нужные сервису.
// Интерфейс позволяет тестировать логику сделок без Postgres.
type Store interface {
	DealReader
	Create(ctx context.Context, d *Deal) error
	PairCount(ctx context.Context, initiatorCode, counterpartCode string) (int, int, error)
	HasPending(ctx context.Context, initiatorCode string) (bool, error)
	Resolve(ctx context.Context, id uuid.UUID, counterpartChoice Choice, p Payoff) (*Deal, error)
	FindStalePending(ctx context.Context, olderThan time.Duration) ([]*Deal, error)
}

// Availability отвечает на вопрос «доступен ли игрок для сделки».
type Availability interface {
	IsAvailable(ctx context.Context, code string) bool
}

// Scores обновляет кэш рейтинга после изменения балансов.
type Scores interface {
	Sync(ctx context.Context, codes ...string)
}

// Service управляет сделками.
type Service struct {
	store  Store
	avail  Availability
	scores Scores

	pairLimit    int
	pollInterval time.Duration
	timeout      time.Duration
}

// NewService создаёт сервис сделок.
func NewService(store Store, avail Availability, scores Scores, cfg *config.Config) *Service {
	return &Service{
		store:        store,
		avail:        avail,
		scores:       scores,
		pairLimit:    cfg.DealPairLimit,
		pollInterval: cfg.DealPollInterval,
		timeout:      cfg.DealResponseTimeout,
	}
}

// ResponseTimeout возвращает время ожидания ответа (для сообщений).
func (s *Service) ResponseTimeout() time.Duration {
	return s.timeout
}

// Propose создаёт сделку от имени инициатора.
//
// Порядок проверок:
//  1. сделка с самим собой запрещена;
//  2. баланс инициатора должен быть положительным (подсказка для UX,
//     авторитет — транзакция завершения);
//  3. второй игрок должен быть недавно активен;
//  4. у инициатора не должно быть сделки в полёте;
//  5. пара не исчерпала лимит сделок.
//
// Любой отказ не оставляет следов: сделка создаётся последним шагом.
func (s *Service) Propose(ctx context.Context, initiator *players.Player, counterpartCode string, choice Choice) (*Deal, error) {
	counterpartCode = strings.ToUpper(counterpartCode)
	if counterpartCode == initiator.Code {
		return nil, common.ErrSelfDeal
	}

	if initiator.Coins <= 0 {
		metrics.DealRejections.WithLabelValues("insufficient_funds").Inc()
		return nil, common.ErrInsufficientFunds
	}

	if !s.avail.IsAvailable(ctx, counterpartCode) {
		metrics.DealRejections.WithLabelValues("unavailable").Inc()
		return nil, common.ErrCounterpartUnavailable
	}

	pending, err := s.store.HasPending(ctx, initiator.Code)
	if err != nil {
		return nil, err
	}
	if pending {
		metrics.DealRejections.WithLabelValues("already_active").Inc()
		return nil, common.ErrDealAlreadyActive
	}

	outgoing, incoming, err := s.store.PairCount(ctx, initiator.Code, counterpartCode)
	if err != nil {
		return nil, err
	}
	if !CanDeal(outgoing, incoming, s.pairLimit) {
		metrics.DealRejections.WithLabelValues("rate_limit").Inc()
		return nil, common.ErrRateLimitExceeded
	}

	d := &Deal{
		ID:              uuid.New(),
		InitiatorCode:   initiator.Code,
		CounterpartCode: counterpartCode,
		InitiatorChoice: choice,
		Status:          StatusPending,
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}

	metrics.DealsProposed.Inc()
	log.WithFields(log.Fields{
		"deal":        d.ID,
		"initiator":   d.InitiatorCode,
		"counterpart": d.CounterpartCode,
	}).Info("Сделка предложена")
	return d, nil
}

// PairCount отдаёт счётчики сделок пары (для бейджей ростера).
func (s *Service) PairCount(ctx context.Context, initiatorCode, counterpartCode string) (int, int, error) {
	return s.store.PairCount(ctx, strings.ToUpper(initiatorCode), strings.ToUpper(counterpartCode))
}

// AwaitResolution ждёт завершения сделки: опрос каждые pollInterval,
// максимум timeout. Если второй игрок промолчал — «наказание за молчание»:
// сделка завершается с его выбором «обман».
//
// Возвращает итоговую сделку и признак «закрыта по таймауту».
func (s *Service) AwaitResolution(ctx context.Context, dealID uuid.UUID) (*Deal, bool, error) {
	metrics.ActiveWaiters.Inc()
	defer metrics.ActiveWaiters.Dec()

	d, err := Await(ctx, s.store, dealID, s.pollInterval, s.timeout)
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, common.ErrAwaitTimeout) {
		return nil, false, err
	}

	resolved, rerr := s.resolveWith(ctx, dealID, ChoiceCheat)
	if errors.Is(rerr, common.ErrDealAlreadyResolved) {
		// Поздний ответ успел раньше таймаута — читаем фактический исход,
		// ничего не применяя повторно
		actual, gerr := s.store.GetByID(ctx, dealID)
		if gerr != nil {
			return nil, false, gerr
		}
		return actual, false, nil
	}
	if rerr != nil {
		return nil, true, rerr
	}

	metrics.DealTimeouts.Inc()
	log.WithField("deal", dealID).Info("Сделка закрыта по таймауту (обман по умолчанию)")
	return resolved, true, nil
}

// Respond фиксирует выбор второго игрока и завершает сделку.
func (s *Service) Respond(ctx context.Context, responder *players.Player, dealID uuid.UUID, choice Choice) (*Deal, error) {
	d, err := s.store.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d.CounterpartCode != responder.Code {
		return nil, common.ErrNotYourDeal
	}
	if d.Resolved() {
		return nil, common.ErrDealAlreadyResolved
	}
	return s.resolveWith(ctx, dealID, choice)
}

// resolveWith завершает сделку одним проходом: матрица выплат чистой
// функцией, применение — транзакцией репозитория с CAS по статусу.
func (s *Service) resolveWith(ctx context.Context, dealID uuid.UUID, counterpartChoice Choice) (*Deal, error) {
	d, err := s.store.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d.Resolved() {
		return nil, common.ErrDealAlreadyResolved
	}

	p := Resolve(d.InitiatorChoice, counterpartChoice)
	resolved, err := s.store.Resolve(ctx, dealID, counterpartChoice, p)
	if err != nil {
		return nil, err
	}

	metrics.DealsResolved.WithLabelValues(
		fmt.Sprintf("%s_%s", resolved.InitiatorChoice, counterpartChoice),
	).Inc()
	s.scores.Sync(ctx, resolved.InitiatorCode, resolved.CounterpartCode)

	log.WithFields(log.Fields{
		"deal":              resolved.ID,
		"initiator_delta":   resolved.InitiatorDelta,
		"counterpart_delta": resolved.CounterpartDelta,
	}).Info("Сделка завершена")
	return resolved, nil
}

// SweepStale закрывает зависшие сделки старше таймаута ответа.
// Страховка на случай падения процесса вместе с ожидающей горутиной.
func (s *Service) SweepStale(ctx context.Context) (int, error) {
	stale, err := s.store.FindStalePending(ctx, s.timeout)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, d := range stale {
		if _, err := s.resolveWith(ctx, d.ID, ChoiceCheat); err != nil {
			if errors.Is(err, common.ErrDealAlreadyResolved) {
				continue
			}
			log.WithError(err).WithField("deal", d.ID).Error("Не удалось закрыть зависшую сделку")
			continue
		}
		metrics.DealTimeouts.Inc()
		closed++
	}
	return closed, nil
}

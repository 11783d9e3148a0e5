package shop

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"godspace.ru/economy-game/internal/common"
	"godspace.ru/economy-game/internal/metrics"
)

// Scores обновляет кэш рейтинга после изменения балансов.
type Scores interface {
	Sync(ctx context.Context, codes ...string)
}

type Service struct {
	repo   *Repository
	scores Scores
	logger *logrus.Logger
}

func NewService(repo *Repository, scores Scores, logger *logrus.Logger) *Service {
	return &Service{repo: repo, scores: scores, logger: logger}
}

func (s *Service) Products(ctx context.Context) ([]*Product, error) {
	return s.repo.ListProducts(ctx)
}

// Buy списывает стоимость сразу и создаёт заказ на подтверждение.
func (s *Service) Buy(ctx context.Context, playerCode string, productID int64, quantity int) (*Order, error) {
	if quantity < 1 {
		return nil, common.ErrInvalidAmount
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.Purchase(ctx, playerCode, product, quantity)
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	s.scores.Sync(ctx, playerCode)
	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"player":   playerCode,
		"product":  product.Title,
		"total":    order.Total,
	}).Info("Создан заказ")
	return order, nil
}

func (s *Service) MyOrders(ctx context.Context, playerCode string) ([]*Order, error) {
	return s.repo.ListByPlayer(ctx, playerCode, 10)
}

func (s *Service) PendingOrders(ctx context.Context) ([]*Order, error) {
	return s.repo.ListPending(ctx)
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// Confirm — решение администратора выдать заказ. Возвращает заказ для уведомления игрока.
func (s *Service) Confirm(ctx context.Context, orderID, adminID int64, note string) (*Order, error) {
	if err := s.repo.Confirm(ctx, orderID, adminID, note); err != nil {
		return nil, err
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("заказ подтверждён, но не прочитан: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"admin_id": adminID,
	}).Info("Заказ подтверждён")
	return order, nil
}

// Cancel — отказ администратора с обязательной причиной; стоимость возвращается игроку.
func (s *Service) Cancel(ctx context.Context, orderID, adminID int64, reason string) (*Order, error) {
	order, err := s.repo.Cancel(ctx, orderID, adminID, reason)
	if err != nil {
		return nil, err
	}
	s.scores.Sync(ctx, order.PlayerCode)
	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"admin_id": adminID,
		"reason":   reason,
	}).Info("Заказ отменён, средства возвращены")
	return order, nil
}

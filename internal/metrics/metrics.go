// Package metrics — счётчики Prometheus для игры.
// Отдаются служебным HTTP-сервером на /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DealsProposed — сколько сделок предложено.
	DealsProposed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_deals_proposed_total",
		Help: "Total number of proposed deals",
	})

	// DealsResolved — завершённые сделки по исходу (cooperate_cooperate, ...).
	DealsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_deals_resolved_total",
		Help: "Total number of resolved deals by outcome",
	}, []string{"outcome"})

	// DealTimeouts — сделки, закрытые по таймауту (обман по умолчанию).
	DealTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_deal_timeouts_total",
		Help: "Deals resolved by the no-response timeout",
	})

	// DealRejections — отклонённые предложения по причине.
	DealRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_deal_rejections_total",
		Help: "Deal proposals rejected before creation",
	}, []string{"reason"})

	// OrdersCreated — созданные заказы магазина.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_orders_created_total",
		Help: "Shop orders created",
	})

	// DepositsResolved — закрытые вклады по ветке исхода.
	DepositsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_deposits_resolved_total",
		Help: "Deposits resolved by outcome branch",
	}, []string{"branch"})

	// ActiveWaiters — сколько горутин сейчас ждёт ответа по сделке.
	ActiveWaiters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_active_deal_waiters",
		Help: "Goroutines currently polling for a counterpart choice",
	})
)

// Handler возвращает HTTP-обработчик Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

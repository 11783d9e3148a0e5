// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: закрытие истёкших вкладов,
// добивание зависших сделок и гашение брошенных админ-сессий.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"godspace.ru/economy-game/internal/features/admin"
	"godspace.ru/economy-game/internal/features/deals"
	"godspace.ru/economy-game/internal/features/deposits"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron           *cron.Cron
	dealService    *deals.Service
	depositService *deposits.Service
	adminService   *admin.Service
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
func NewScheduler(dealService *deals.Service, depositService *deposits.Service, adminService *admin.Service) *Scheduler {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		log.WithError(err).Warn("Не удалось загрузить Europe/Moscow, используем UTC+3")
		loc = time.FixedZone("MSK", 3*60*60)
	}

	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:           c,
		dealService:    dealService,
		depositService: depositService,
		adminService:   adminService,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Закрытие истёкших вкладов — каждую минуту
	s.cron.AddFunc("* * * * *", func() {
		log.Debug("[CRON] Проверка истёкших вкладов")
		if err := s.depositService.SweepExpired(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка закрытия вкладов")
		}
	})

	// Зависшие сделки (бот перезапускался, ожидающий ушёл) — каждую минуту.
	// Живые сделки добирает таймаут ожидания, сюда попадают только сироты.
	s.cron.AddFunc("* * * * *", func() {
		n, err := s.dealService.SweepStale(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка закрытия зависших сделок")
			return
		}
		if n > 0 {
			log.WithField("count", n).Info("[CRON] Закрыты зависшие сделки")
		}
	})

	// Гашение брошенных админ-сессий и чистка попыток входа — раз в час
	s.cron.AddFunc("0 * * * *", func() {
		if err := s.adminService.SweepSessions(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка гашения админ-сессий")
		}
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен (Europe/Moscow)")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

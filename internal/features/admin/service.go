// Package admin — service.go содержит логику аутентификации, управления сессиями
// и state-машину для пошаговых админ-действий.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"godspace.ru/economy-game/internal/common"
	"godspace.ru/economy-game/internal/config"
)

// Сессия живёт сутки, но гаснет после получаса без команд администратора.
const (
	sessionTTL       = 24 * time.Hour
	sessionIdleLimit = 30 * time.Minute
	attemptRetention = 7 * 24 * time.Hour
)

// Service управляет админ-панелью.
type Service struct {
	repo     *Repository
	cfg      *config.Config
	states   map[int64]*AdminState // Состояния диалогов (in-memory)
	statesMu sync.RWMutex
}

// NewService создаёт сервис админ-панели.
func NewService(repo *Repository, cfg *config.Config) *Service {
	return &Service{
		repo:   repo,
		cfg:    cfg,
		states: make(map[int64]*AdminState),
	}
}

// IsAdmin проверяет Telegram ID по списку администраторов из конфига.
func (s *Service) IsAdmin(userID int64) bool {
	for _, id := range s.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// VerifyPassword проверяет пароль администратора с использованием Argon2id.
// Включает защиту от brute-force: 3 неудачные попытки = блокировка на 1 час.
func (s *Service) VerifyPassword(ctx context.Context, userID int64, password string) error {
	// Проверяем лимит попыток
	attempts, err := s.repo.GetRecentAttempts(ctx, userID, 1*time.Hour)
	if err != nil {
		return err
	}
	if attempts >= 3 {
		return common.ErrTooManyAttempts
	}

	// Проверяем пароль
	match := verifyArgon2id(password, s.cfg.AdminPasswordHash)

	// Логируем попытку
	s.repo.LogAttempt(ctx, userID, match)

	if !match {
		return common.ErrWrongPassword
	}

	// Создаём сессию
	token := generateSecureToken()
	session := &AdminSession{
		UserID:       userID,
		SessionToken: token,
		ExpiresAt:    time.Now().Add(sessionTTL),
	}

	return s.repo.CreateSession(ctx, session)
}

// HasActiveSession проверяет, есть ли у пользователя живая сессия:
// непросроченная и без получасового простоя.
func (s *Service) HasActiveSession(ctx context.Context, userID int64) bool {
	session, err := s.repo.GetActiveSession(ctx, userID)
	return err == nil && session != nil && !session.IdleExpired(time.Now(), sessionIdleLimit)
}

// SweepSessions гасит просроченные и брошенные сессии и чистит
// старые записи попыток входа. Запускается по расписанию.
func (s *Service) SweepSessions(ctx context.Context) error {
	n, err := s.repo.DeactivateStale(ctx, sessionIdleLimit)
	if err != nil {
		return err
	}
	if n > 0 {
		log.WithField("count", n).Info("Деактивированы погасшие админ-сессии")
	}
	return s.repo.PruneAttempts(ctx, attemptRetention)
}

// TouchSession обновляет время последней активности сессии.
func (s *Service) TouchSession(ctx context.Context, userID int64) {
	if err := s.repo.UpdateActivity(ctx, userID); err != nil {
		log.WithError(err).Warn("Не удалось обновить активность сессии")
	}
}

// Logout завершает сессию администратора.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	s.ClearState(userID)
	return s.repo.DeactivateSession(ctx, userID)
}

// GetState возвращает текущее состояние диалога.
func (s *Service) GetState(userID int64) *AdminState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return nil
	}
	// Проверяем истечение
	if time.Now().After(state.ExpiresAt) {
		return nil
	}
	return state
}

// SetState устанавливает состояние диалога с 5-минутным таймаутом.
func (s *Service) SetState(userID int64, stateName string, data interface{}) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	s.states[userID] = &AdminState{
		State:     stateName,
		Data:      data,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
}

// ClearState сбрасывает состояние диалога.
func (s *Service) ClearState(userID int64) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	delete(s.states, userID)
}

// --- Криптографические утилиты ---

// verifyArgon2id проверяет пароль по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(password, encodedHash string) bool {
	// Парсим хеш
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	// Извлекаем параметры
	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	// Декодируем соль
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}

	// Декодируем хеш
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	// Вычисляем хеш введённого пароля
	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравниваем в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}

// generateSecureToken генерирует криптографически безопасный токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

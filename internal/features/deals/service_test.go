package deals

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godspace.ru/economy-game/internal/common"
	"godspace.ru/economy-game/internal/config"
	"godspace.ru/economy-game/internal/features/players"
)

// fakeStore — хранилище сделок в памяти с тем же CAS-поведением,
// что и у репозитория: завершать можно только pending-сделку.
type fakeStore struct {
	mu       sync.Mutex
	deals    map[uuid.UUID]*Deal
	outgoing int
	incoming int
	resolves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{deals: make(map[uuid.UUID]*Deal)}
}

func (s *fakeStore) Create(_ context.Context, d *Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	cp.CreatedAt = time.Now()
	s.deals[d.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[id]
	if !ok {
		return nil, common.ErrDealNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *fakeStore) PairCount(_ context.Context, _, _ string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outgoing, s.incoming, nil
}

func (s *fakeStore) HasPending(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deals {
		if d.InitiatorCode == code && d.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Resolve(_ context.Context, id uuid.UUID, choice Choice, p Payoff) (*Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[id]
	if !ok {
		return nil, common.ErrDealNotFound
	}
	if d.Status != StatusPending {
		return nil, common.ErrDealAlreadyResolved
	}
	now := time.Now()
	d.Status = StatusCompleted
	d.CounterpartChoice = &choice
	d.InitiatorDelta = p.Initiator
	d.CounterpartDelta = p.Counterpart
	d.ResolvedAt = &now
	s.resolves++
	cp := *d
	return &cp, nil
}

func (s *fakeStore) FindStalePending(_ context.Context, olderThan time.Duration) ([]*Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Deal
	for _, d := range s.deals {
		if d.Status == StatusPending && time.Since(d.CreatedAt) > olderThan {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeAvail struct{ online bool }

func (a fakeAvail) IsAvailable(_ context.Context, _ string) bool { return a.online }

type noopScores struct{}

func (noopScores) Sync(_ context.Context, _ ...string) {}

func testConfig() *config.Config {
	return &config.Config{
		DealPairLimit:       5,
		DealPollInterval:    5 * time.Millisecond,
		DealResponseTimeout: 40 * time.Millisecond,
	}
}

func testPlayer(code string, coins int64) *players.Player {
	return &players.Player{Code: code, DisplayName: code, Coins: coins}
}

func TestProposeRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("сделка с самим собой", func(t *testing.T) {
		s := NewService(newFakeStore(), fakeAvail{true}, noopScores{}, testConfig())
		_, err := s.Propose(ctx, testPlayer("AAA", 100), "AAA", ChoiceCooperate)
		assert.ErrorIs(t, err, common.ErrSelfDeal)
	})

	t.Run("нулевой баланс", func(t *testing.T) {
		s := NewService(newFakeStore(), fakeAvail{true}, noopScores{}, testConfig())
		_, err := s.Propose(ctx, testPlayer("AAA", 0), "BBB", ChoiceCooperate)
		assert.ErrorIs(t, err, common.ErrInsufficientFunds)
	})

	t.Run("игрок недоступен", func(t *testing.T) {
		s := NewService(newFakeStore(), fakeAvail{false}, noopScores{}, testConfig())
		_, err := s.Propose(ctx, testPlayer("AAA", 100), "BBB", ChoiceCooperate)
		assert.ErrorIs(t, err, common.ErrCounterpartUnavailable)
	})

	t.Run("уже есть активная сделка", func(t *testing.T) {
		store := newFakeStore()
		s := NewService(store, fakeAvail{true}, noopScores{}, testConfig())

		_, err := s.Propose(ctx, testPlayer("AAA", 100), "BBB", ChoiceCooperate)
		require.NoError(t, err)

		_, err = s.Propose(ctx, testPlayer("AAA", 100), "CCC", ChoiceCooperate)
		assert.ErrorIs(t, err, common.ErrDealAlreadyActive)
	})

	t.Run("шестая сделка в паре", func(t *testing.T) {
		store := newFakeStore()
		store.outgoing, store.incoming = 3, 2
		s := NewService(store, fakeAvail{true}, noopScores{}, testConfig())

		_, err := s.Propose(ctx, testPlayer("AAA", 100), "BBB", ChoiceCooperate)
		assert.ErrorIs(t, err, common.ErrRateLimitExceeded)
		// Сделка не создана
		assert.Empty(t, store.deals)
	})
}

func TestProposeCreatesPending(t *testing.T) {
	store := newFakeStore()
	s := NewService(store, fakeAvail{true}, noopScores{}, testConfig())

	d, err := s.Propose(context.Background(), testPlayer("AAA", 100), "bbb", ChoiceCheat)
	require.NoError(t, err)

	assert.Equal(t, "AAA", d.InitiatorCode)
	assert.Equal(t, "BBB", d.CounterpartCode) // код нормализуется к верхнему регистру
	assert.Equal(t, ChoiceCheat, d.InitiatorChoice)
	assert.Equal(t, StatusPending, d.Status)
	assert.Nil(t, d.CounterpartChoice)
}

func TestRespondResolvesDeal(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := NewService(store, fakeAvail{true}, noopScores{}, testConfig())

	d, err := s.Propose(ctx, testPlayer("AAA", 100), "BBB", ChoiceCooperate)
	require.NoError(t, err)

	resolved, err := s.Respond(ctx, testPlayer("BBB", 100), d.ID, ChoiceCheat)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, resolved.Status)
	require.NotNil(t, resolved.CounterpartChoice)
	assert.Equal(t, ChoiceCheat, *resolved.CounterpartChoice)
	assert.Equal(t, int64(-1), resolved.InitiatorDelta)
	assert.Equal(t, int64(3), resolved.CounterpartDelta)
}

func TestRespondGuards(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := NewService(store, fakeAvail{true}, noopScores{}, testConfig())

	d, err := s.Propose(ctx, testPlayer("AAA", 100), "BBB", ChoiceCooperate)
	require.NoError(t, err)

	// Чужой игрок ответить не может
	_, err = s.Respond(ctx, testPlayer("CCC", 100), d.ID, ChoiceCheat)
	assert.ErrorIs(t, err, common.ErrNotYourDeal)

	// Повторное завершение не применяется
	_, err = s.Respond(ctx, testPlayer("BBB", 100), d.ID, ChoiceCooperate)
	require.NoError(t, err)
	_, err = s.Respond(ctx, testPlayer("BBB", 100), d.ID, ChoiceCheat)
	assert.ErrorIs(t, err, common.ErrDealAlreadyResolved)

	assert.Equal(t, 1, store.resolves, "выплаты применяются ровно один раз")
}

// Молчание второго игрока: по таймауту сделка закрывается обманом
// по умолчанию, выплаты — по строке матрицы для фактического выбора
// инициатора против обмана.
func TestAwaitResolutionTimeoutDefaultsToCheat(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := NewService(store, fakeAvail{true}, noopScores{}, testConfig())

	d, err := s.Propose(ctx, testPlayer("AAA", 100), "BBB", ChoiceCooperate)
	require.NoError(t, err)

	resolved, timedOut, err := s.AwaitResolution(ctx, d.ID)
	require.NoError(t, err)

	assert.True(t, timedOut)
	require.NotNil(t, resolved.CounterpartChoice)
	assert.Equal(t, ChoiceCheat, *resolved.CounterpartChoice)
	assert.Equal(t, int64(-1), resolved.InitiatorDelta)
	assert.Equal(t, int64(3), resolved.CounterpartDelta)
	assert.Equal(t, 1, store.resolves)
}

// Гонка «поздний ответ против таймаута»: если ответ успел первым,
// таймаут ничего не применяет и возвращает фактический исход.
func TestAwaitResolutionLateResponseWins(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := NewService(store, fakeAvail{true}, noopScores{}, testConfig())

	d, err := s.Propose(ctx, testPlayer("AAA", 100), "BBB", ChoiceCooperate)
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = s.Respond(ctx, testPlayer("BBB", 100), d.ID, ChoiceCooperate)
	}()

	resolved, timedOut, err := s.AwaitResolution(ctx, d.ID)
	require.NoError(t, err)

	assert.False(t, timedOut)
	require.NotNil(t, resolved.CounterpartChoice)
	assert.Equal(t, ChoiceCooperate, *resolved.CounterpartChoice)
	assert.Equal(t, int64(2), resolved.InitiatorDelta)
	assert.Equal(t, 1, store.resolves, "двойного применения нет")
}

func TestSweepStale(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()

	cfg := testConfig()
	cfg.DealResponseTimeout = 10 * time.Millisecond
	cfg.DealPollInterval = 2 * time.Millisecond
	s := NewService(store, fakeAvail{true}, noopScores{}, cfg)

	d, err := s.Propose(ctx, testPlayer("AAA", 100), "BBB", ChoiceCheat)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	closed, err := s.SweepStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	resolved, err := store.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resolved.Status)
	require.NotNil(t, resolved.CounterpartChoice)
	assert.Equal(t, ChoiceCheat, *resolved.CounterpartChoice)
	// Обман против обмана: −1/−1
	assert.Equal(t, int64(-1), resolved.InitiatorDelta)
	assert.Equal(t, int64(-1), resolved.CounterpartDelta)
}

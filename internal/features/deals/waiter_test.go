package deals

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godspace.ru/economy-game/internal/common"
)

// pollingReader отдаёт pending первые n чтений, затем завершённую сделку.
type pollingReader struct {
	deal      Deal
	pendingFor int32
	reads      int32
}

func (r *pollingReader) GetByID(_ context.Context, _ uuid.UUID) (*Deal, error) {
	n := atomic.AddInt32(&r.reads, 1)
	d := r.deal
	if n <= r.pendingFor {
		d.Status = StatusPending
	} else {
		d.Status = StatusCompleted
	}
	return &d, nil
}

func TestAwaitReturnsOnceResolved(t *testing.T) {
	reader := &pollingReader{
		deal:       Deal{ID: uuid.New()},
		pendingFor: 3,
	}

	d, err := Await(context.Background(), reader, reader.deal.ID, 5*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, d.Status)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&reader.reads), int32(4))
}

func TestAwaitTimesOut(t *testing.T) {
	reader := &pollingReader{
		deal:       Deal{ID: uuid.New()},
		pendingFor: 1 << 30, // никогда не завершается
	}

	_, err := Await(context.Background(), reader, reader.deal.ID, 5*time.Millisecond, 30*time.Millisecond)
	assert.ErrorIs(t, err, common.ErrAwaitTimeout)
}

func TestAwaitCancelled(t *testing.T) {
	reader := &pollingReader{
		deal:       Deal{ID: uuid.New()},
		pendingFor: 1 << 30,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Await(ctx, reader, reader.deal.ID, 5*time.Millisecond, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

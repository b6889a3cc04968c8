package progress

import (
	"context"
	"fmt"
	"sync"

	"shelfaudit/internal/compliance/models"
	"shelfaudit/pkg/platform/sentinel"
)

// LocalLock serializes runs of the same period within one process.
type LocalLock struct {
	mu      sync.Mutex
	holders map[models.Period]string
}

func NewLocalLock() *LocalLock {
	return &LocalLock{holders: make(map[models.Period]string)}
}

// Acquire fails with sentinel.ErrConflict while another run holds the period.
func (l *LocalLock) Acquire(_ context.Context, period models.Period, runID string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if holder, held := l.holders[period]; held {
		return nil, fmt.Errorf("period %s is being evaluated by run %s: %w", period, holder, sentinel.ErrConflict)
	}
	l.holders[period] = runID

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.holders[period] == runID {
				delete(l.holders, period)
			}
		})
		return nil
	}, nil
}

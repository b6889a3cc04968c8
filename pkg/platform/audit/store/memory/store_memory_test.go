package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "shelfaudit/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, audit.Event{RunID: "r1", Period: "202401", Action: audit.ActionRunStarted, Timestamp: base}))
	require.NoError(t, s.Append(ctx, audit.Event{RunID: "r1", Period: "202401", Action: audit.ActionRunCompleted, Timestamp: base.Add(time.Minute)}))
	require.NoError(t, s.Append(ctx, audit.Event{RunID: "r2", Period: "202402", Action: audit.ActionRunStarted, Timestamp: base}))

	events, err := s.ListByPeriod(ctx, "202401", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ActionRunCompleted, events[0].Action, "newest first")
	assert.NotEmpty(t, events[0].ID)

	limited, err := s.ListByPeriod(ctx, "202401", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	s.Clear()
	events, err = s.ListByPeriod(ctx, "202401", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"facility-backend/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_RecordAndRecent(t *testing.T) {
	r, s, _ := newTestRunner(t)
	h := NewHistory(s, nil)
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	first := r.Run(ctx, KindLink, Options{})
	require.NoError(t, h.Record(ctx, first))
	second := r.Run(ctx, KindDiscover, Options{})
	require.NoError(t, h.Record(ctx, second))

	runs, err := h.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, "discover", runs[0].Kind)
	assert.Equal(t, "succeeded", runs[0].Status)
	assert.JSONEq(t, `{"created":1,"skippedExisting":0,"unmatched":1,"totalARoomsConsidered":2,"totalBRoomsAvailable":1}`,
		string(runs[0].Summary))

	runs, err = h.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestHistory_RecordFailure(t *testing.T) {
	s := store.NewMemoryStore()
	s.InjectFault("RecordJob", errors.New("disk full"))
	h := NewHistory(s, nil)

	err := h.Record(context.Background(), &Report{ID: "x", Kind: KindLink, Status: StatusSucceeded})
	assert.Error(t, err)
}

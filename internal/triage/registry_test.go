package triage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistryEvictsIdle(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	old := newSession("old", "", ashaIntake(), base)
	fresh := newSession("fresh", "", ashaIntake(), base.Add(90*time.Minute))
	r.Put(old)
	r.Put(fresh)

	got, err := r.Get("old")
	require.NoError(t, err)
	assert.Same(t, old, got)

	n := r.Evict(base.Add(2*time.Hour), time.Hour)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, r.Len())

	_, err = r.Get("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.Get("fresh")
	assert.NoError(t, err)
}

func TestStartJanitor(t *testing.T) {
	r := NewRegistry()
	_, err := r.StartJanitor("not a schedule", time.Hour, zap.NewNop())
	assert.Error(t, err)

	c, err := r.StartJanitor("@every 1h", time.Hour, zap.NewNop())
	require.NoError(t, err)
	<-c.Stop().Done()
}

package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *Tracker {
	tracker, err := NewTracker(TrackerConfig{
		Logger:  logger.NewTestLogger(),
		Context: context.Background(),
		Dir:     t.TempDir(),
	})
	require.NoError(t, err)
	require.NotNil(t, tracker)
	t.Cleanup(func() { tracker.Close() })
	return tracker
}

func TestTracker(t *testing.T) {
	tracker := newTestTracker(t)
	ok, val, err := tracker.GetKey("foo")
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Empty(t, val)
	assert.NoError(t, tracker.SetKey("foo", "bar", time.Microsecond))
	time.Sleep(time.Millisecond * 2)
	ok, val, err = tracker.GetKey("foo")
	assert.NoError(t, err)
	assert.Empty(t, val)
	assert.False(t, ok)
	assert.NoError(t, tracker.SetKey("foo", "bar", 0))
	ok, val, err = tracker.GetKey("foo")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bar", val)
	assert.NoError(t, tracker.DeleteKey("foo", "missing"))
	ok, _, err = tracker.GetKey("foo")
	assert.NoError(t, err)
	assert.False(t, ok)
}

type snapshot struct {
	Fingerprint string
	Tables      []string
	Columns     map[string]int
}

func TestTrackerObjects(t *testing.T) {
	tracker := newTestTracker(t)
	var out snapshot
	ok, err := tracker.GetObject(EntitiesKey, &out)
	assert.NoError(t, err)
	assert.False(t, ok)

	in := snapshot{Fingerprint: "abc", Tables: []string{"sensors", "sensor_items"}, Columns: map[string]int{"sensors": 3}}
	assert.NoError(t, tracker.SetObject(EntitiesKey, in, 0))
	ok, err = tracker.GetObject(EntitiesKey, &out)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)
}

func TestTrackerKeys(t *testing.T) {
	tracker := newTestTracker(t)
	assert.NoError(t, tracker.SetKey(SchemaKey("Traffic Flow"), "{}", 0))
	assert.NoError(t, tracker.SetKey(SchemaKey("Air Quality"), "{}", 0))
	assert.NoError(t, tracker.SetKey(FingerprintKey, "abc", 0))
	keys, err := tracker.Keys(SchemaKeyPrefix)
	assert.NoError(t, err)
	assert.Equal(t, []string{"schema:Air Quality", "schema:Traffic Flow"}, keys)
}

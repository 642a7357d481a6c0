package preview

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPublisher_CollapsesBursts(t *testing.T) {
	var renders, published atomic.Int32
	var last atomic.Value
	pub := NewPublisher(50*time.Millisecond, func() (string, error) {
		n := renders.Add(1)
		return string(rune('a' + n - 1)), nil
	}, func(page string) {
		published.Add(1)
		last.Store(page)
	}, zaptest.NewLogger(t))
	defer pub.Close()

	for range 5 {
		pub.Request()
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, pub.Pending())

	require.Eventually(t, func() bool { return published.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), renders.Load())
	assert.Equal(t, "a", last.Load())
	assert.False(t, pub.Pending())
}

func TestPublisher_FlushReportsError(t *testing.T) {
	failure := errors.New("broken project")
	var published atomic.Int32
	pub := NewPublisher(time.Millisecond, func() (string, error) {
		return "", failure
	}, func(string) { published.Add(1) }, nil)
	defer pub.Close()

	require.ErrorIs(t, pub.Flush(), failure)
	assert.Zero(t, published.Load())
}

func TestPublisher_CloseCancelsPending(t *testing.T) {
	var renders atomic.Int32
	pub := NewPublisher(30*time.Millisecond, func() (string, error) {
		renders.Add(1)
		return "page", nil
	}, func(string) {}, nil)

	pub.Request()
	pub.Close()
	pub.Request()
	assert.False(t, pub.Pending())

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, renders.Load())
	assert.NoError(t, pub.Flush(), "flush after close is a no-op")
	assert.Zero(t, renders.Load())
}

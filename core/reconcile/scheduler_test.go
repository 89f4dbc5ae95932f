package reconcile

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsInOrder(t *testing.T) {
	s := NewScheduler()
	defer s.Close()

	var got []int
	for i := range 5 {
		require.NoError(t, s.Do(context.Background(), func() error {
			got = append(got, i)
			return nil
		}))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestScheduler_SerializesConcurrentCallers(t *testing.T) {
	s := NewScheduler()
	defer s.Close()

	counter := 0
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestScheduler_SkipsCancelledTask(t *testing.T) {
	s := NewScheduler()
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	err := s.Do(ctx, func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestScheduler_Close(t *testing.T) {
	s := NewScheduler()
	s.Close()
	s.Close()

	err := s.Do(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrSchedulerClosed)
}

package batch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func numbers(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestRunAllSucceed(t *testing.T) {
	items := numbers(50)
	outcomes, stats := Run(context.Background(), items, func(ctx context.Context, item int) (string, error) {
		return strconv.Itoa(item * 2), nil
	}, Options[int, string]{InitialBatchSize: 7})

	require.Equal(t, 50, stats.Attempted)
	require.Equal(t, 50, stats.Succeeded)
	require.Equal(t, 0, stats.Failed)
	require.Equal(t, 0, stats.CacheHits)
	require.Equal(t, 8, stats.Batches)
	for i, o := range outcomes {
		require.Equal(t, items[i], o.Item)
		require.Equal(t, strconv.Itoa(i*2), o.Value)
		require.NoError(t, o.Err)
	}
}

func TestRunFailuresSettle(t *testing.T) {
	errOdd := errors.New("odd")
	items := numbers(31)
	outcomes, stats := Run(context.Background(), items, func(ctx context.Context, item int) (int, error) {
		if item%3 == 0 {
			return 0, fmt.Errorf("item %d: %w", item, errOdd)
		}
		return item, nil
	}, Options[int, int]{InitialBatchSize: 4})

	// 0, 3, ..., 30
	require.Equal(t, 11, stats.Failed)
	require.Equal(t, 20, stats.Succeeded)
	require.Equal(t, stats.Attempted, stats.Succeeded+stats.Failed)
	for _, o := range outcomes {
		if o.Item%3 == 0 {
			require.ErrorIs(t, o.Err, errOdd)
		} else {
			require.NoError(t, o.Err)
			require.Equal(t, o.Item, o.Value)
		}
	}
}

func TestRunDeduplicatesByKey(t *testing.T) {
	var calls atomic.Int32
	items := []string{"a", "b", "a"}
	outcomes, stats := Run(context.Background(), items, func(ctx context.Context, item string) (string, error) {
		calls.Add(1)
		return item + "!", nil
	}, Options[string, string]{
		InitialBatchSize: 3,
		Key:              func(item string) string { return item },
	})

	require.EqualValues(t, 2, calls.Load())
	require.Equal(t, 1, stats.CacheHits)
	require.Equal(t, 3, stats.Attempted)
	require.Equal(t, 3, stats.Succeeded)
	require.True(t, outcomes[2].CacheHit)
	require.Equal(t, "a!", outcomes[2].Value)
}

func TestRunDeduplicatesAcrossBatches(t *testing.T) {
	errBroken := errors.New("broken")
	var calls atomic.Int32
	items := []string{"x", "y", "z", "x"}
	outcomes, stats := Run(context.Background(), items, func(ctx context.Context, item string) (string, error) {
		calls.Add(1)
		if item == "x" {
			return "", errBroken
		}
		return item, nil
	}, Options[string, string]{
		InitialBatchSize: 1,
		Key:              func(item string) string { return item },
	})

	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, 1, stats.CacheHits)
	require.Equal(t, 2, stats.Failed)
	require.ErrorIs(t, outcomes[3].Err, errBroken)
}

func TestRunRevisesNextBatchOnly(t *testing.T) {
	var mutex sync.Mutex
	var sizes []int
	current := 0
	maxConcurrent := map[int]int{}

	items := numbers(40)
	_, stats := Run(context.Background(), items, func(ctx context.Context, item int) (int, error) {
		mutex.Lock()
		current++
		batch := len(sizes)
		if current > maxConcurrent[batch] {
			maxConcurrent[batch] = current
		}
		mutex.Unlock()

		time.Sleep(5 * time.Millisecond)

		mutex.Lock()
		current--
		mutex.Unlock()
		return item, nil
	}, Options[int, int]{
		InitialBatchSize:   2,
		ConcurrencyCeiling: 8,
		OnBatchComplete: func(report Report[int, int]) int {
			mutex.Lock()
			sizes = append(sizes, report.Size)
			mutex.Unlock()
			switch report.Index {
			case 0:
				return 100
			case 1:
				return -1
			case 2:
				return 3
			}
			return 0
		},
	})

	// 2, clamped to 8, kept at 8, then 3 until done
	require.Equal(t, []int{2, 8, 8, 3, 3, 3, 3, 3, 3, 3, 1}, sizes)
	require.Equal(t, len(sizes), stats.Batches)
	require.Equal(t, 40, stats.Succeeded)
	for batch, n := range maxConcurrent {
		require.LessOrEqual(t, n, sizes[batch])
	}
}

func TestRunClampsInitialSize(t *testing.T) {
	var sizes []int
	Run(context.Background(), numbers(5), func(ctx context.Context, item int) (int, error) {
		return item, nil
	}, Options[int, int]{
		InitialBatchSize:   50,
		ConcurrencyCeiling: 2,
		OnBatchComplete: func(report Report[int, int]) int {
			sizes = append(sizes, report.Size)
			return 0
		},
	})
	require.Equal(t, []int{2, 2, 1}, sizes)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	_, stats := Run(ctx, numbers(6), func(ctx context.Context, item int) (int, error) {
		calls.Add(1)
		return item, nil
	}, Options[int, int]{InitialBatchSize: 2})

	require.Zero(t, calls.Load())
	require.Equal(t, 6, stats.Failed)
	require.Equal(t, stats.Attempted, stats.Failed)
}

func TestReportRates(t *testing.T) {
	report := Report[int, int]{
		Outcomes: []Outcome[int, int]{
			{Duration: 100 * time.Millisecond},
			{Duration: 300 * time.Millisecond, Err: errors.New("x")},
			{CacheHit: true},
			{Duration: 200 * time.Millisecond},
		},
	}
	require.InDelta(t, 0.25, report.ErrorRate(), 1e-9)
	require.Equal(t, 200*time.Millisecond, report.MeanLatency())
	require.Zero(t, Report[int, int]{}.ErrorRate())
	require.Zero(t, Report[int, int]{}.MeanLatency())
}

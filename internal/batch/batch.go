// Package batch runs a worker over many items in sequential batches whose size
// the caller may revise after every batch.
package batch

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const DefaultConcurrencyCeiling = 16

var (
	tracer = otel.Tracer("vhs/batch")
	meter  = otel.Meter("vhs/batch")
)

var (
	batchSizeHistogram metric.Int64Histogram
	batchItemsCounter  metric.Int64Counter
)

func init() {
	var err error
	batchSizeHistogram, err = meter.Int64Histogram(
		"vhs.batch.size",
		metric.WithDescription("Number of items processed concurrently in one batch."),
	)
	if err != nil {
		otel.Handle(err)
	}
	batchItemsCounter, err = meter.Int64Counter(
		"vhs.batch.items",
		metric.WithDescription("Items processed by batch runs, by outcome."),
	)
	if err != nil {
		otel.Handle(err)
	}
}

// Worker processes a single item.
type Worker[T, R any] func(ctx context.Context, item T) (R, error)

// Outcome is the settled result of one item.
type Outcome[T, R any] struct {
	Item  T
	Value R
	Err   error
	// Duration is the time spent in the worker, it is zero for cache hits.
	Duration time.Duration
	// CacheHit is true if the outcome was shared from an earlier item with
	// the same key.
	CacheHit bool
}

// Report describes one finished batch.
type Report[T, R any] struct {
	// Index is the zero based position of the batch within the run.
	Index    int
	Size     int
	Outcomes []Outcome[T, R]
	Duration time.Duration
}

func (r Report[T, R]) Failed() int {
	failed := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed++
		}
	}
	return failed
}

// ErrorRate is the share of failed outcomes in the batch.
func (r Report[T, R]) ErrorRate() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}
	return float64(r.Failed()) / float64(len(r.Outcomes))
}

// MeanLatency averages the worker time over the items that invoked the
// worker.
func (r Report[T, R]) MeanLatency() time.Duration {
	var total time.Duration
	invoked := 0
	for _, o := range r.Outcomes {
		if o.CacheHit {
			continue
		}
		total += o.Duration
		invoked++
	}
	if invoked == 0 {
		return 0
	}
	return total / time.Duration(invoked)
}

// Stats summarizes a whole run.
type Stats struct {
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	CacheHits int           `json:"cacheHits"`
	Batches   int           `json:"batches"`
	Duration  time.Duration `json:"duration"`
}

type Options[T, R any] struct {
	// InitialBatchSize defaults to the concurrency ceiling.
	InitialBatchSize int
	// ConcurrencyCeiling bounds every batch size, it defaults to
	// DefaultConcurrencyCeiling.
	ConcurrencyCeiling int
	// Key deduplicates items within a run, items sharing a key invoke the
	// worker once.
	Key func(item T) string
	// OnBatchComplete may return the size of the next batch, a non-positive
	// value keeps the current size.
	OnBatchComplete func(report Report[T, R]) int
}

type inflight[R any] struct {
	done  chan struct{}
	value R
	err   error
}

func clamp(size, ceiling int) int {
	if size < 1 {
		return 1
	}
	if size > ceiling {
		return ceiling
	}
	return size
}

// Run processes items in sequential batches. Every item of a batch runs
// concurrently and one item failing never aborts its siblings. Outcomes are
// returned in the order of items.
func Run[T, R any](ctx context.Context, items []T, worker Worker[T, R], opts Options[T, R]) ([]Outcome[T, R], Stats) {
	started := time.Now()

	ceiling := opts.ConcurrencyCeiling
	if ceiling <= 0 {
		ceiling = DefaultConcurrencyCeiling
	}
	size := opts.InitialBatchSize
	if size <= 0 {
		size = ceiling
	}
	size = clamp(size, ceiling)

	outcomes := make([]Outcome[T, R], len(items))
	seen := map[string]*inflight[R]{}
	stats := Stats{Attempted: len(items)}

	for offset, index := 0, 0; offset < len(items); index++ {
		end := min(offset+size, len(items))
		batchStarted := time.Now()

		func() {
			ctx, span := tracer.Start(ctx, "batch.run")
			defer span.End()
			span.SetAttributes(
				attribute.Int("batch.index", index),
				attribute.Int("batch.size", end-offset),
			)

			wg := sync.WaitGroup{}
			for i := offset; i < end; i++ {
				item := items[i]

				var shared *inflight[R]
				var owned *inflight[R]
				if opts.Key != nil {
					key := opts.Key(item)
					if existing, ok := seen[key]; ok {
						shared = existing
					} else {
						owned = &inflight[R]{done: make(chan struct{})}
						seen[key] = owned
					}
				}

				wg.Add(1)
				go func() {
					defer wg.Done()

					if shared != nil {
						<-shared.done
						outcomes[i] = Outcome[T, R]{
							Item:     item,
							Value:    shared.value,
							Err:      shared.err,
							CacheHit: true,
						}
						return
					}

					var value R
					var err error
					itemStarted := time.Now()
					if ctxErr := ctx.Err(); ctxErr != nil {
						err = ctxErr
					} else {
						value, err = worker(ctx, item)
					}
					outcomes[i] = Outcome[T, R]{
						Item:     item,
						Value:    value,
						Err:      err,
						Duration: time.Since(itemStarted),
					}

					if owned != nil {
						owned.value = value
						owned.err = err
						close(owned.done)
					}
				}()
			}
			wg.Wait()
		}()

		report := Report[T, R]{
			Index:    index,
			Size:     end - offset,
			Outcomes: outcomes[offset:end],
			Duration: time.Since(batchStarted),
		}
		record(ctx, report, &stats)

		offset = end
		if opts.OnBatchComplete != nil {
			if next := opts.OnBatchComplete(report); next > 0 {
				size = clamp(next, ceiling)
			}
		}
	}

	stats.Duration = time.Since(started)
	return outcomes, stats
}

func record[T, R any](ctx context.Context, report Report[T, R], stats *Stats) {
	stats.Batches++

	succeeded, failed, hits := 0, 0, 0
	for _, o := range report.Outcomes {
		if o.CacheHit {
			hits++
		}
		if o.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	stats.Succeeded += succeeded
	stats.Failed += failed
	stats.CacheHits += hits

	batchSizeHistogram.Record(ctx, int64(report.Size))
	batchItemsCounter.Add(ctx, int64(succeeded), metric.WithAttributes(attribute.String("outcome", "succeeded")))
	batchItemsCounter.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("outcome", "failed")))
	batchItemsCounter.Add(ctx, int64(hits), metric.WithAttributes(attribute.String("outcome", "cache_hit")))
}

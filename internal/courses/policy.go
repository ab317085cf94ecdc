package courses

import (
	"time"
)

// thresholds of the detail batch size policy
const (
	shrinkErrorRate = 0.2
	shrinkLatency   = 1200 * time.Millisecond
	growLatency     = 600 * time.Millisecond
	shrinkFactor    = 0.75
	growFactor      = 0.10
)

// NextBatchSize adapts the detail batch size to how the last batch went. It
// shrinks by a quarter when more than a fifth of the batch failed or items took
// longer than 1.2s on average, and grows by a tenth (at least one) when nothing
// failed and items took less than 0.6s. The result stays within [1, ceiling].
func NextBatchSize(size, ceiling int, errorRate float64, meanLatency time.Duration) int {
	next := size
	switch {
	case errorRate > shrinkErrorRate || meanLatency > shrinkLatency:
		next = int(float64(size) * shrinkFactor)
	case errorRate == 0 && meanLatency < growLatency:
		next = size + max(1, int(float64(size)*growFactor))
	}

	if next < 1 {
		next = 1
	}
	if ceiling > 0 && next > ceiling {
		next = ceiling
	}
	return next
}

// internal/metrics/aggregator.go
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mwiater/jsonrag/internal/logging"
	"github.com/mwiater/jsonrag/internal/ragerr"
)

const (
	OpIngest = "ingest"
	OpAsk    = "ask"
)

// Aggregator collects latency and outcome statistics per operation.
type Aggregator struct {
	mutex   sync.Mutex
	metrics map[string]*OperationMetrics
	now     func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		metrics: make(map[string]*OperationMetrics),
		now:     time.Now,
	}
}

// Record adds one run of op. size is the chunk count for ingest runs and is
// ignored when negative.
func (a *Aggregator) Record(op string, elapsed time.Duration, size int, err error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	m, exists := a.metrics[op]
	if !exists {
		m = &OperationMetrics{Operation: op}
		a.metrics[op] = m
	}
	m.LastUpdatedUTC = a.now().UTC()

	if err != nil {
		m.Failures++
		if m.FailureKinds == nil {
			m.FailureKinds = make(map[string]int64)
		}
		kind := "InternalError"
		if k := ragerr.KindOf(err); k != nil {
			kind = k.Error()
		}
		m.FailureKinds[kind]++
		logging.LogEvent("[METRICS] %s failed after %s (%s)", op, elapsed, kind)
		return
	}

	m.Successes++
	millis := float64(elapsed) / float64(time.Millisecond)
	updateRunningStat(&m.DurationMillis, millis)
	if size < 0 {
		return
	}

	bucket := getBucket(size)
	for i := range m.SizeBuckets {
		if m.SizeBuckets[i].Bucket == bucket {
			updateRunningStat(&m.SizeBuckets[i].DurationMillis, millis)
			return
		}
	}
	nb := SizeBucket{Dimension: "chunks", Bucket: bucket}
	updateRunningStat(&nb.DurationMillis, millis)
	m.SizeBuckets = append(m.SizeBuckets, nb)
}

// Snapshot returns a copy of every operation's metrics, sorted by name.
func (a *Aggregator) Snapshot() []OperationMetrics {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	out := make([]OperationMetrics, 0, len(a.metrics))
	for _, m := range a.metrics {
		c := *m
		c.SizeBuckets = append([]SizeBucket(nil), m.SizeBuckets...)
		if m.FailureKinds != nil {
			c.FailureKinds = make(map[string]int64, len(m.FailureKinds))
			for k, v := range m.FailureKinds {
				c.FailureKinds[k] = v
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

// updateRunningStat updates a single running statistic using Welford's online algorithm.
func updateRunningStat(rs *RunningStat, value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
	if rs.Count > 1 {
		rs.StdDev = math.Sqrt(rs.M2 / float64(rs.Count-1))
	}
}

// getBucket groups chunk counts into coarse size classes.
func getBucket(chunks int) string {
	switch {
	case chunks <= 1:
		return "1"
	case chunks <= 10:
		return "2-10"
	case chunks <= 100:
		return "11-100"
	case chunks <= 1000:
		return "101-1000"
	default:
		return "1000+"
	}
}

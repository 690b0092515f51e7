// internal/metrics/types.go
package metrics

import "time"

// OperationMetrics is the aggregated record for one session operation
// ("ingest" or "ask").
type OperationMetrics struct {
	Operation      string           `json:"operation"`
	LastUpdatedUTC time.Time        `json:"last_updated_utc"`
	Successes      int64            `json:"successes"`
	Failures       int64            `json:"failures"`
	FailureKinds   map[string]int64 `json:"failure_kinds,omitempty"`
	DurationMillis RunningStat      `json:"duration_ms"`
	SizeBuckets    []SizeBucket     `json:"size_buckets,omitempty"`
}

// SizeBucket holds duration stats for successful runs of a given size, such
// as the number of chunks indexed.
type SizeBucket struct {
	Dimension      string      `json:"dimension"`
	Bucket         string      `json:"bucket"`
	DurationMillis RunningStat `json:"duration_ms"`
}

// RunningStat holds the necessary values for online calculation of mean, variance, and stddev.
type RunningStat struct {
	Count  int64   `json:"count"`
	Mean   float64 `json:"mean"`
	M2     float64 `json:"-"` // Sum of squares of differences from the current mean
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/jsonrag/internal/ragerr"
)

func TestRunningStatWelford(t *testing.T) {
	var rs RunningStat
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		updateRunningStat(&rs, v)
	}
	assert.EqualValues(t, 8, rs.Count)
	assert.InDelta(t, 5.0, rs.Mean, 1e-9)
	assert.Equal(t, 2.0, rs.Min)
	assert.Equal(t, 9.0, rs.Max)
	assert.InDelta(t, math.Sqrt(32.0/7.0), rs.StdDev, 1e-9)
}

func TestAggregatorRecordsOutcomes(t *testing.T) {
	a := NewAggregator()
	a.Record(OpIngest, 100*time.Millisecond, 1, nil)
	a.Record(OpIngest, 300*time.Millisecond, 1, nil)
	a.Record(OpIngest, 50*time.Millisecond, 20, nil)
	a.Record(OpIngest, time.Second, -1, ragerr.Newf(ragerr.ErrFetch, "GET", "timeout"))
	a.Record(OpAsk, 10*time.Millisecond, -1, ragerr.Newf(ragerr.ErrNoData, "ask", "none"))
	a.Record(OpAsk, 10*time.Millisecond, -1, errors.New("plain"))

	snap := a.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, OpAsk, snap[0].Operation)
	assert.Equal(t, OpIngest, snap[1].Operation)

	ingest := snap[1]
	assert.EqualValues(t, 3, ingest.Successes)
	assert.EqualValues(t, 1, ingest.Failures)
	assert.Equal(t, map[string]int64{"FetchError": 1}, ingest.FailureKinds)
	assert.InDelta(t, 150.0, ingest.DurationMillis.Mean, 1e-9)
	require.Len(t, ingest.SizeBuckets, 2)
	assert.Equal(t, "1", ingest.SizeBuckets[0].Bucket)
	assert.EqualValues(t, 2, ingest.SizeBuckets[0].DurationMillis.Count)
	assert.Equal(t, "11-100", ingest.SizeBuckets[1].Bucket)

	ask := snap[0]
	assert.EqualValues(t, 0, ask.Successes)
	assert.Equal(t, map[string]int64{"NoDataError": 1, "InternalError": 1}, ask.FailureKinds)
}

func TestSnapshotIsACopy(t *testing.T) {
	a := NewAggregator()
	a.Record(OpAsk, time.Millisecond, -1, ragerr.Newf(ragerr.ErrGeneration, "generate", "down"))
	snap := a.Snapshot()
	snap[0].FailureKinds["GenerationError"] = 99

	assert.EqualValues(t, 1, a.Snapshot()[0].FailureKinds["GenerationError"])
}

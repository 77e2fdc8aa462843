package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSampler_EmptyWindow(t *testing.T) {
	s := NewSampler()
	require.Zero(t, s.AverageLatency())
	require.Zero(t, s.PeakLatency())
	require.Equal(t, 100, s.HealthScore(0))
}

func TestSampler_AverageAndPeak(t *testing.T) {
	s := NewSampler()
	for _, v := range []int{10, 20, 30} {
		s.RecordLatency(v)
	}
	require.Equal(t, 20, s.AverageLatency())
	require.Equal(t, 30, s.PeakLatency())
}

func TestSampler_AverageRoundsToNearest(t *testing.T) {
	s := NewSampler()
	s.RecordLatency(10)
	s.RecordLatency(11)
	require.Equal(t, 11, s.AverageLatency()) // 10.5 rounds half away from zero

	s = NewSampler()
	for _, v := range []int{10, 10, 11} {
		s.RecordLatency(v)
	}
	require.Equal(t, 10, s.AverageLatency())
}

func TestSampler_WindowEvictsOldest(t *testing.T) {
	s := NewSampler()
	for i := 1; i <= WindowSize+1; i++ {
		s.RecordLatency(i)
	}
	require.Equal(t, WindowSize, s.Len())

	samples := s.Samples()
	require.Len(t, samples, WindowSize)
	require.Equal(t, 2, samples[0])
	require.Equal(t, WindowSize+1, samples[len(samples)-1])

	for i := 0; i < 3*WindowSize; i++ {
		s.RecordLatency(1)
		require.LessOrEqual(t, s.Len(), WindowSize)
	}
}

func TestScore_DeductionsAreCumulative(t *testing.T) {
	cases := []struct {
		avg, conns, want int
	}{
		{0, 0, 100},
		{30, 500, 100},
		{31, 0, 100 - 5},
		{51, 0, 100 - 10},
		{101, 0, 100 - 20},
		{0, 501, 100 - 10},
		{0, 1001, 100 - 20},
		{150, 1100, 100 - 20 - 20},
		{60, 600, 100 - 10 - 10},
		{40, 1001, 100 - 5 - 20},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Score(tc.avg, tc.conns), "avg=%d conns=%d", tc.avg, tc.conns)
	}
}

func TestStatusFromScore(t *testing.T) {
	require.Equal(t, StatusOptimal, StatusFromScore(85))
	require.Equal(t, StatusOptimal, StatusFromScore(80))
	require.Equal(t, StatusDegraded, StatusFromScore(65))
	require.Equal(t, StatusDegraded, StatusFromScore(50))
	require.Equal(t, StatusCritical, StatusFromScore(49))
	require.Equal(t, StatusCritical, StatusFromScore(10))
}

func TestOverallHealth(t *testing.T) {
	require.Equal(t, HealthHealthy, OverallHealth(50, 500))
	require.Equal(t, HealthWarning, OverallHealth(51, 0))
	require.Equal(t, HealthWarning, OverallHealth(0, 501))
	require.Equal(t, HealthCritical, OverallHealth(101, 0))
	require.Equal(t, HealthCritical, OverallHealth(0, 1001))
}

func TestSampler_Snapshot(t *testing.T) {
	s := NewSampler()
	s.RecordLatency(120)
	now := time.Now()

	snap := s.Snapshot(3, 2, now)
	require.Equal(t, 3, snap.ActiveNodes)
	require.Equal(t, 2, snap.ConnectedUsers)
	require.Equal(t, 120, snap.AverageLatency)
	require.Equal(t, 120, snap.PeakLatency)
	require.Equal(t, SimulatedThroughput(3), snap.Throughput)
	require.Zero(t, snap.FailedConnections)
	require.Equal(t, 80, snap.HealthScore)
	require.Equal(t, StatusOptimal, snap.Status)
	require.Equal(t, now, snap.LastUpdated)

	empty := NewSampler().Snapshot(0, 0, now)
	require.Zero(t, empty.ActiveNodes)
	require.Equal(t, 100, empty.HealthScore)
}

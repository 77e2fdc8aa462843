package metrics

import (
	"math"
	"sync"
	"time"
)

// WindowSize is the number of latency samples kept for aggregation.
const WindowSize = 100

// simulatedThroughputPerConnection is a placeholder multiplier, not a measurement.
const simulatedThroughputPerConnection = 100

// Status classifies a health score.
type Status string

const (
	StatusOptimal  Status = "optimal"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// Health is the coarser classification used by the health endpoint.
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthWarning  Health = "warning"
	HealthCritical Health = "critical"
)

// Sampler keeps a process-wide rolling window of round-trip latencies.
type Sampler struct {
	mu    sync.Mutex
	buf   [WindowSize]int
	start int
	n     int
}

func NewSampler() *Sampler {
	return &Sampler{}
}

// RecordLatency appends a sample, evicting the oldest one when the window is full.
func (s *Sampler) RecordLatency(ms int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n == WindowSize {
		s.buf[s.start] = ms
		s.start = (s.start + 1) % WindowSize
		return
	}
	s.buf[(s.start+s.n)%WindowSize] = ms
	s.n++
}

// Len returns the number of samples currently held.
func (s *Sampler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Samples returns the window oldest first.
func (s *Sampler) Samples() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, s.n)
	for i := 0; i < s.n; i++ {
		out[i] = s.buf[(s.start+i)%WindowSize]
	}
	return out
}

// AverageLatency is the rounded mean of the window, 0 when empty.
func (s *Sampler) AverageLatency() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n == 0 {
		return 0
	}
	sum := 0
	for i := 0; i < s.n; i++ {
		sum += s.buf[(s.start+i)%WindowSize]
	}
	return int(math.Round(float64(sum) / float64(s.n)))
}

// PeakLatency is the maximum of the window, 0 when empty.
func (s *Sampler) PeakLatency() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	peak := 0
	for i := 0; i < s.n; i++ {
		if v := s.buf[(s.start+i)%WindowSize]; v > peak {
			peak = v
		}
	}
	return peak
}

// HealthScore scores the current window against the given connection count.
func (s *Sampler) HealthScore(connections int) int {
	return Score(s.AverageLatency(), connections)
}

// Score starts at 100 and applies one latency deduction and one load deduction.
// The two deductions are cumulative.
func Score(avgLatency, connections int) int {
	score := 100

	switch {
	case avgLatency > 100:
		score -= 20
	case avgLatency > 50:
		score -= 10
	case avgLatency > 30:
		score -= 5
	}

	switch {
	case connections > 1000:
		score -= 20
	case connections > 500:
		score -= 10
	}

	if score < 0 {
		return 0
	}
	return score
}

func StatusFromScore(score int) Status {
	switch {
	case score >= 80:
		return StatusOptimal
	case score >= 50:
		return StatusDegraded
	default:
		return StatusCritical
	}
}

func OverallHealth(avgLatency, connections int) Health {
	switch {
	case avgLatency > 100 || connections > 1000:
		return HealthCritical
	case avgLatency > 50 || connections > 500:
		return HealthWarning
	default:
		return HealthHealthy
	}
}

// SimulatedThroughput is a placeholder derived from the connection count.
func SimulatedThroughput(connections int) int {
	return connections * simulatedThroughputPerConnection
}

// Snapshot is the aggregate pushed to clients and served by the stats endpoint.
// Throughput and FailedConnections are simulated.
type Snapshot struct {
	ActiveNodes       int       `json:"activeNodes"`
	ConnectedUsers    int       `json:"connectedUsers"`
	AverageLatency    int       `json:"averageLatency"`
	PeakLatency       int       `json:"peakLatency"`
	Throughput        int       `json:"throughput"`
	FailedConnections int       `json:"failedConnections"`
	HealthScore       int       `json:"healthScore"`
	Status            Status    `json:"status"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

// Snapshot aggregates the window with the given presence counts.
func (s *Sampler) Snapshot(connections, users int, now time.Time) Snapshot {
	avg := s.AverageLatency()
	score := Score(avg, connections)
	return Snapshot{
		ActiveNodes:       connections,
		ConnectedUsers:    users,
		AverageLatency:    avg,
		PeakLatency:       s.PeakLatency(),
		Throughput:        SimulatedThroughput(connections),
		FailedConnections: 0,
		HealthScore:       score,
		Status:            StatusFromScore(score),
		LastUpdated:       now,
	}
}

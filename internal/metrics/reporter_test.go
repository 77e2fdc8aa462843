package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"helpdesk-realtime-api/internal/events"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticSource struct {
	conns, users int
	online       []int64
}

func (s staticSource) ConnectionCount() int { return s.conns }
func (s staticSource) UserCount() int { return s.users }
func (s staticSource) OnlineUsers() []int64 { return s.online }

type recordingPublisher struct {
	mu       sync.Mutex
	sent     []events.Event
	failures int
	panics   bool
}

func (p *recordingPublisher) ToEveryone(e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panics {
		panic("transport exploded")
	}
	if p.failures > 0 {
		p.failures--
		return errors.New("transport unavailable")
	}
	p.sent = append(p.sent, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type recordingMirror struct {
	touched [][]int64
}

func (m *recordingMirror) Online(context.Context, int64) error { return nil }
func (m *recordingMirror) Offline(context.Context, int64) error { return nil }
func (m *recordingMirror) Touch(_ context.Context, ids []int64) error {
	m.touched = append(m.touched, ids)
	return nil
}

func TestReporter_TickPublishesSnapshot(t *testing.T) {
	sampler := NewSampler()
	sampler.RecordLatency(60)
	pub := &recordingPublisher{}
	mirror := &recordingMirror{}
	r := NewReporter(sampler, staticSource{conns: 3, users: 2, online: []int64{1, 2}}, pub, mirror, time.Second, zaptest.NewLogger(t))

	require.NoError(t, r.Tick(context.Background()))
	require.Len(t, pub.sent, 2)

	stats, ok := pub.sent[0].(*events.NetworkStatsUpdate)
	require.True(t, ok)
	require.Equal(t, 3, stats.ActiveNodes)
	require.Equal(t, 2, stats.ConnectedUsers)
	require.Equal(t, 60, stats.AverageLatency)
	require.Equal(t, 90, stats.HealthScore)
	require.Equal(t, "optimal", stats.Status)

	m, ok := pub.sent[1].(*events.NetworkMetrics)
	require.True(t, ok)
	require.Equal(t, 3, m.ActiveConnections)
	require.Equal(t, 60, m.Latency)
	require.Equal(t, SimulatedThroughput(3), m.Throughput)

	require.Equal(t, [][]int64{{1, 2}}, mirror.touched)
}

func TestReporter_ZeroConnections(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewReporter(NewSampler(), staticSource{}, pub, nil, time.Second, zaptest.NewLogger(t))

	require.NoError(t, r.Tick(context.Background()))
	stats := pub.sent[0].(*events.NetworkStatsUpdate)
	require.Zero(t, stats.ActiveNodes)
	require.Equal(t, 100, stats.HealthScore)
}

func TestReporter_TickReturnsPublishError(t *testing.T) {
	pub := &recordingPublisher{failures: 1}
	r := NewReporter(NewSampler(), staticSource{}, pub, nil, time.Second, zaptest.NewLogger(t))
	require.Error(t, r.Tick(context.Background()))
}

func TestReporter_SafeTickRecoversPanic(t *testing.T) {
	pub := &recordingPublisher{panics: true}
	r := NewReporter(NewSampler(), staticSource{}, pub, nil, time.Second, zaptest.NewLogger(t))
	require.Error(t, r.safeTick(context.Background()))
}

func TestReporter_RunSurvivesFailedCycles(t *testing.T) {
	pub := &recordingPublisher{failures: 2}
	r := NewReporter(NewSampler(), staticSource{}, pub, nil, 10*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return pub.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop after cancellation")
	}
}

package metrics

import (
	"context"
	"fmt"
	"time"

	"helpdesk-realtime-api/internal/events"
	"helpdesk-realtime-api/internal/presence"

	"go.uber.org/zap"
)

// PresenceSource is the part of the connection registry the reporter reads.
type PresenceSource interface {
	ConnectionCount() int
	UserCount() int
	OnlineUsers() []int64
}

// Publisher delivers an event to every connection.
type Publisher interface {
	ToEveryone(e events.Event) error
}

// Reporter periodically pushes aggregated network metrics to all clients.
type Reporter struct {
	sampler   *Sampler
	source    PresenceSource
	publisher Publisher
	mirror    presence.Mirror
	interval  time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewReporter(sampler *Sampler, source PresenceSource, publisher Publisher, mirror presence.Mirror, interval time.Duration, log *zap.Logger) *Reporter {
	if mirror == nil {
		mirror = presence.NopMirror{}
	}
	return &Reporter{
		sampler:   sampler,
		source:    source,
		publisher: publisher,
		mirror:    mirror,
		interval:  interval,
		log:       log,
		now:       time.Now,
	}
}

// Run ticks until ctx is cancelled. A failed cycle is logged and skipped.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.safeTick(ctx); err != nil {
				r.log.Error("metrics cycle skipped", zap.Error(err))
			}
		}
	}
}

func (r *Reporter) safeTick(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("metrics cycle panicked: %v", p)
		}
	}()
	return r.Tick(ctx)
}

// Tick computes one snapshot and pushes NETWORK_STATS_UPDATE and NETWORK_METRICS.
func (r *Reporter) Tick(ctx context.Context) error {
	snap := r.sampler.Snapshot(r.source.ConnectionCount(), r.source.UserCount(), r.now())

	if err := r.mirror.Touch(ctx, r.source.OnlineUsers()); err != nil {
		r.log.Warn("presence mirror refresh failed", zap.Error(err))
	}

	if err := r.publisher.ToEveryone(StatsEvent(snap)); err != nil {
		return fmt.Errorf("publish network stats: %w", err)
	}
	metrics := &events.NetworkMetrics{
		ActiveConnections: snap.ActiveNodes,
		Latency:           snap.AverageLatency,
		Throughput:        snap.Throughput,
	}
	if err := r.publisher.ToEveryone(metrics); err != nil {
		return fmt.Errorf("publish network metrics: %w", err)
	}
	return nil
}

// StatsEvent converts a snapshot into its wire event.
func StatsEvent(s Snapshot) *events.NetworkStatsUpdate {
	return &events.NetworkStatsUpdate{
		ActiveNodes:       s.ActiveNodes,
		ConnectedUsers:    s.ConnectedUsers,
		AverageLatency:    s.AverageLatency,
		PeakLatency:       s.PeakLatency,
		Throughput:        s.Throughput,
		FailedConnections: s.FailedConnections,
		HealthScore:       s.HealthScore,
		Status:            string(s.Status),
		LastUpdated:       s.LastUpdated,
	}
}

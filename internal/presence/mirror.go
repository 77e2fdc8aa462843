package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Mirror publishes local presence transitions to a store shared by every instance.
// The in-process Registry stays the source of truth for this node.
type Mirror interface {
	Online(ctx context.Context, userID int64) error
	Offline(ctx context.Context, userID int64) error
	// Touch extends the validity of the given users' presence on this node.
	Touch(ctx context.Context, userIDs []int64) error
}

// NopMirror is used when the service runs as a single instance.
type NopMirror struct{}

func (NopMirror) Online(context.Context, int64) error { return nil }
func (NopMirror) Offline(context.Context, int64) error { return nil }
func (NopMirror) Touch(context.Context, []int64) error { return nil }

// RedisMirror keeps one hash per user, field = node id, value = unix expiry.
// A user is online cluster-wide while any field has not expired.
type RedisMirror struct {
	rdb    redis.Cmdable
	nodeID string
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisMirror(rdb redis.Cmdable, nodeID string, ttl time.Duration) *RedisMirror {
	return &RedisMirror{rdb: rdb, nodeID: nodeID, ttl: ttl, now: time.Now}
}

func presenceKey(userID int64) string {
	return "helpdesk:presence:" + strconv.FormatInt(userID, 10)
}

func (m *RedisMirror) Online(ctx context.Context, userID int64) error {
	return m.Touch(ctx, []int64{userID})
}

func (m *RedisMirror) Offline(ctx context.Context, userID int64) error {
	if err := m.rdb.HDel(ctx, presenceKey(userID), m.nodeID).Err(); err != nil {
		return errors.Wrapf(err, "clear presence of user %d", userID)
	}
	return nil
}

func (m *RedisMirror) Touch(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	expireAt := strconv.FormatInt(m.now().Add(m.ttl).Unix(), 10)
	_, err := m.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range userIDs {
			key := presenceKey(id)
			p.HSet(ctx, key, m.nodeID, expireAt)
			p.Expire(ctx, key, m.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "refresh presence")
	}
	return nil
}

// Lookup reports whether the user is online on any node.
func (m *RedisMirror) Lookup(ctx context.Context, userID int64) (bool, error) {
	fields, err := m.rdb.HGetAll(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "lookup presence of user %d", userID)
	}
	return len(liveNodes(fields, m.now())) > 0, nil
}

func liveNodes(fields map[string]string, now time.Time) []string {
	var out []string
	for node, raw := range fields {
		exp, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if exp > now.Unix() {
			out = append(out, node)
		}
	}
	return out
}

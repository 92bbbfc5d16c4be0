package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DecisionEvent is one allow/deny outcome of the quota middleware
type DecisionEvent struct {
	Endpoint string
	Outcome  string
	At       time.Time
}

// DecisionStats keeps rolling allow/deny counters in redis hashes:
// a cumulative total, one hash per minute bucket and one field per endpoint.
type DecisionStats struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

type StatsOption func(*DecisionStats)

func WithStatsPrefix(prefix string) StatsOption {
	return func(s *DecisionStats) { s.prefix = strings.Trim(prefix, ":") }
}

func WithStatsTTL(d time.Duration) StatsOption {
	return func(s *DecisionStats) { s.ttl = d }
}

// NewDecisionStats returns a stats store bound to rdb. A nil client makes every call a no-op.
func NewDecisionStats(rdb *redis.Client, opts ...StatsOption) *DecisionStats {
	s := &DecisionStats{
		rdb:    rdb,
		prefix: "quota:stats",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record increments the counters for ev in one pipeline
func (s *DecisionStats) Record(ctx context.Context, ev DecisionEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := strings.TrimSpace(ev.Outcome)
	if field == "" {
		field = "unknown"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	if ep := strings.TrimSpace(ev.Endpoint); ep != "" {
		pipe.HIncrBy(ctx, s.prefix+":endpoint", ep+":"+field, 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Totals returns the cumulative counters by outcome
func (s *DecisionStats) Totals(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	if s == nil || s.rdb == nil {
		return out, nil
	}
	raw, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return nil, err
	}
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}

package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/richxcame/ride-board/pkg/config"
)

// gcraScript implements GCRA (generic cell rate algorithm) in Redis. One key
// per identity and endpoint holds the theoretical arrival time; the script
// admits or rejects a request and reports the remaining allowance.
//
// KEYS[1] = bucket key
// ARGV[1] = emission interval (seconds, float)
// ARGV[2] = burst offset (seconds, float)
// ARGV[3] = now (seconds, float)
// ARGV[4] = key TTL (seconds, int)
//
// Returns {allowed, remaining, retry_after, reset_after}; durations are
// strings because Redis cannot return floats.
const gcraScript = `
local key = KEYS[1]
local emission_interval = tonumber(ARGV[1])
local burst_offset = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tat = tonumber(redis.call("GET", key))
if tat == nil or tat < now then
	tat = now
end

local allow_at = tat - burst_offset
if now < allow_at then
	return {0, 0, tostring(allow_at - now), tostring(tat - now)}
end

local new_tat = tat + emission_interval
redis.call("SET", key, tostring(new_tat), "EX", ttl)

local remaining = math.floor((now + burst_offset - new_tat) / emission_interval)
if remaining < 0 then
	remaining = 0
end
return {1, remaining, "0", tostring(new_tat - now)}
`

// Rule is the admission policy applied to one request
type Rule struct {
	Limit  int // requests per window
	Burst  int // extra requests admitted above the steady rate
	Window time.Duration
}

// Result describes the outcome of an admission check
type Result struct {
	Allowed     bool
	Remaining   int
	RetryAfter  time.Duration
	ResetAfter  time.Duration
	Limit       int
	Window      time.Duration
	IdentityKey string
	EndpointKey string
}

// Limiter rate limits requests per client and endpoint using Redis
type Limiter struct {
	client redis.Scripter
	cfg    config.RateLimitConfig
	script *redis.Script
	now    func() time.Time
}

// NewLimiter creates a limiter from the given config
func NewLimiter(client redis.Scripter, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client: client,
		cfg:    cfg,
		script: redis.NewScript(gcraScript),
		now:    time.Now,
	}
}

// WithNow replaces the clock; used in tests
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// RuleFor resolves the admission rule for an endpoint, applying any
// configured override on top of the defaults
func (l *Limiter) RuleFor(endpoint string) Rule {
	rule := Rule{
		Limit:  l.cfg.DefaultLimit,
		Burst:  l.cfg.DefaultBurst,
		Window: l.cfg.Window(),
	}
	if rule.Burst < 0 {
		rule.Burst = 0
	}

	override, ok := l.cfg.EndpointOverrides[endpoint]
	if !ok {
		return rule
	}
	if override.Limit > 0 {
		rule.Limit = override.Limit
	}
	if override.Burst > 0 {
		rule.Burst = override.Burst
	}
	if override.WindowSeconds > 0 {
		rule.Window = time.Duration(override.WindowSeconds) * time.Second
	}
	return rule
}

// Allow checks whether the identity may hit the endpoint now. A disabled
// limiter and non-positive limits always admit.
func (l *Limiter) Allow(ctx context.Context, endpoint, identity string, rule Rule) (*Result, error) {
	result := &Result{
		Allowed:     true,
		Remaining:   rule.Limit,
		Limit:       rule.Limit,
		Window:      rule.Window,
		IdentityKey: identity,
		EndpointKey: endpoint,
	}
	if !l.cfg.Enabled || rule.Limit <= 0 {
		return result, nil
	}

	window := rule.Window
	if window <= 0 {
		window = l.cfg.Window()
	}

	emissionInterval := window.Seconds() / float64(rule.Limit)
	burstOffset := emissionInterval * float64(rule.Burst+1)
	now := float64(l.now().UnixNano()) / 1e9
	ttl := int(window.Seconds()*2) + 1

	key := fmt.Sprintf("%s:%s:%s", l.cfg.RedisPrefix, endpoint, identity)

	raw, err := l.script.Run(ctx, l.client, []string{key},
		formatFloat(emissionInterval), formatFloat(burstOffset), formatFloat(now), ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 4 {
		return nil, fmt.Errorf("rate limit script returned unexpected reply: %v", raw)
	}

	result.Allowed = toInt(values[0]) == 1
	result.Remaining = toInt(values[1])
	result.RetryAfter = time.Duration(toFloat(values[2]) * float64(time.Second))
	result.ResetAfter = time.Duration(toFloat(values[3]) * float64(time.Second))
	return result, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 10, 64)
}

func toInt(v interface{}) int {
	switch val := v.(type) {
	case int64:
		return int(val)
	case int:
		return val
	case float64:
		return int(val)
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

package claims

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Iron-Ham/squadron/internal/errors"
)

// DefaultRedisPrefix namespaces claim keys when no prefix is given.
const DefaultRedisPrefix = "squadron:claims"

// Active claims live in two hashes keyed by task key: "owners" maps to the
// member id and is the compare-and-set target, "records" maps to the JSON
// encoded Claim. Both hashes change together inside one script.
var (
	tryClaimScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
  redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
end
return redis.call('HGET', KEYS[2], ARGV[1])
`)

	releaseScript = redis.NewScript(`
local owner = redis.call('HGET', KEYS[1], ARGV[1])
if not owner then
  return {0, ''}
end
if owner ~= ARGV[2] then
  return {1, owner}
end
local rec = redis.call('HGET', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
return {2, rec}
`)

	releaseHeldScript = redis.NewScript(`
local all = redis.call('HGETALL', KEYS[1])
local out = {}
for i = 1, #all, 2 do
  if all[i + 1] == ARGV[1] then
    table.insert(out, redis.call('HGET', KEYS[2], all[i]))
    redis.call('HDEL', KEYS[1], all[i])
    redis.call('HDEL', KEYS[2], all[i])
  end
end
return out
`)
)

const (
	releaseNoClaim  = 0
	releaseNotOwner = 1
	releaseOK       = 2
)

// RedisBackend stores active claims in Redis. Released claims are removed
// rather than kept as history.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend creates a backend using client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) keys() []string {
	return []string{b.prefix + ":owners", b.prefix + ":records"}
}

// TryClaim implements Backend.
func (b *RedisBackend) TryClaim(ctx context.Context, taskKey, memberID string, at time.Time) (Claim, error) {
	rec, err := json.Marshal(Claim{
		ID:        uuid.NewString(),
		TaskKey:   taskKey,
		ClaimedBy: memberID,
		ClaimedAt: at.UTC(),
	})
	if err != nil {
		return Claim{}, fmt.Errorf("encode claim: %w", err)
	}
	raw, err := tryClaimScript.Run(ctx, b.client, b.keys(), taskKey, memberID, string(rec)).Text()
	if err != nil {
		return Claim{}, fmt.Errorf("redis try claim: %w", err)
	}
	return decodeClaim(raw)
}

// ReleaseClaim implements Backend.
func (b *RedisBackend) ReleaseClaim(ctx context.Context, taskKey, memberID string, at time.Time) (Claim, error) {
	res, err := releaseScript.Run(ctx, b.client, b.keys(), taskKey, memberID).Slice()
	if err != nil {
		return Claim{}, fmt.Errorf("redis release claim: %w", err)
	}
	if len(res) != 2 {
		return Claim{}, fmt.Errorf("redis release claim: unexpected reply %v", res)
	}
	code, _ := res[0].(int64)
	payload, _ := res[1].(string)

	switch code {
	case releaseNoClaim:
		return Claim{}, errors.NewNotFoundError("claim", taskKey).WithCause(errors.ErrNoActiveClaim)
	case releaseNotOwner:
		return Claim{}, errors.NewOwnershipError(taskKey, payload, memberID)
	case releaseOK:
		c, err := decodeClaim(payload)
		if err != nil {
			return Claim{}, err
		}
		releasedAt := at.UTC()
		c.ReleasedAt = &releasedAt
		return c, nil
	default:
		return Claim{}, fmt.Errorf("redis release claim: unexpected code %d", code)
	}
}

// ActiveClaims implements Backend.
func (b *RedisBackend) ActiveClaims(ctx context.Context) ([]Claim, error) {
	records, err := b.client.HGetAll(ctx, b.keys()[1]).Result()
	if err != nil {
		return nil, fmt.Errorf("redis active claims: %w", err)
	}
	out := make([]Claim, 0, len(records))
	for _, raw := range records {
		c, err := decodeClaim(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sortClaims(out)
	return out, nil
}

// ReleaseClaimsHeldBy implements Backend.
func (b *RedisBackend) ReleaseClaimsHeldBy(ctx context.Context, memberID string, at time.Time) ([]Claim, error) {
	raws, err := releaseHeldScript.Run(ctx, b.client, b.keys(), memberID).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("redis release held claims: %w", err)
	}
	releasedAt := at.UTC()
	out := make([]Claim, 0, len(raws))
	for _, raw := range raws {
		c, err := decodeClaim(raw)
		if err != nil {
			return nil, err
		}
		c.ReleasedAt = &releasedAt
		out = append(out, c)
	}
	sortClaims(out)
	return out, nil
}

func decodeClaim(raw string) (Claim, error) {
	var c Claim
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Claim{}, fmt.Errorf("decode claim: %w", err)
	}
	return c, nil
}

func sortClaims(cs []Claim) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].ClaimedAt.Equal(cs[j].ClaimedAt) {
			return cs[i].ClaimedAt.Before(cs[j].ClaimedAt)
		}
		return cs[i].TaskKey < cs[j].TaskKey
	})
}

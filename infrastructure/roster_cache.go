package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"socialbets/domain/interfaces"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ConnectRedis opens a client and checks the server answers
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RosterCache is a read-through Redis cache for assigned resolver lists.
// Assignments are fixed when the bet is created, so entries only expire by TTL.
type RosterCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRosterCache creates a roster cache; a nil client disables caching
func NewRosterCache(rdb redis.Cmdable, ttl time.Duration) *RosterCache {
	return &RosterCache{rdb: rdb, ttl: ttl}
}

func rosterKey(betID int64) string {
	return fmt.Sprintf("socialbets:roster:%d", betID)
}

// Wrap returns a GroupMembership that consults the cache before next
func (c *RosterCache) Wrap(next interfaces.GroupMembership) interfaces.GroupMembership {
	if c == nil || c.rdb == nil {
		return next
	}
	return &cachedMembership{cache: c, next: next}
}

// Invalidate drops the cached roster of a bet
func (c *RosterCache) Invalidate(ctx context.Context, betID int64) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, rosterKey(betID)).Err()
}

type cachedMembership struct {
	cache *RosterCache
	next  interfaces.GroupMembership
}

func (m *cachedMembership) GetEligibleResolvers(ctx context.Context, betID int64) ([]int64, error) {
	key := rosterKey(betID)

	raw, err := m.cache.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ids []int64
		if jsonErr := json.Unmarshal(raw, &ids); jsonErr == nil {
			return ids, nil
		}
		log.WithField("bet_id", betID).Warn("Discarding unreadable roster cache entry")
	case !errors.Is(err, redis.Nil):
		// Cache trouble must not block resolution
		log.WithFields(log.Fields{
			"bet_id": betID,
			"error":  err,
		}).Warn("Roster cache read failed, falling back to database")
	}

	ids, err := m.next.GetEligibleResolvers(ctx, betID)
	if err != nil {
		return nil, err
	}

	if ids == nil {
		ids = []int64{}
	}
	payload, _ := json.Marshal(ids)
	if setErr := m.cache.rdb.Set(ctx, key, payload, m.cache.ttl).Err(); setErr != nil {
		log.WithFields(log.Fields{
			"bet_id": betID,
			"error":  setErr,
		}).Warn("Roster cache write failed")
	}

	return ids, nil
}

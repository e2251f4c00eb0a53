package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anjiri1684/stuplan/models"
	"github.com/anjiri1684/stuplan/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const profileCacheNamespace = "profile"

// CachedProfileStore is a read-through Redis cache in front of another
// ProfileStore. Cache failures are logged and never fail the call.
//
// Every Write bumps a per-user version key. A fill only lands if the version
// it read before fetching is still current, so a fetch that raced a write
// cannot cache the row the write replaced.
type CachedProfileStore struct {
	next   services.ProfileStore
	client redis.UniversalClient
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisClient(addr, password string) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func NewCachedProfileStore(next services.ProfileStore, client redis.UniversalClient, ttl time.Duration, log *zap.Logger) *CachedProfileStore {
	return &CachedProfileStore{next: next, client: client, ttl: ttl, log: log}
}

func cacheKey(userID string) string {
	return profileCacheNamespace + ":" + userID
}

func versionKey(userID string) string {
	return profileCacheNamespace + ":" + userID + ":version"
}

func (c *CachedProfileStore) Fetch(ctx context.Context, userID string) (*models.UserProfile, error) {
	raw, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	switch {
	case err == nil:
		var profile models.UserProfile
		if jsonErr := json.Unmarshal(raw, &profile); jsonErr == nil {
			return &profile, nil
		}
		c.log.Warn("dropping undecodable cached profile", zap.String("user_id", userID))
		c.invalidate(ctx, userID)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("profile cache read failed", zap.String("user_id", userID), zap.Error(err))
	}

	version, verErr := c.client.Get(ctx, versionKey(userID)).Result()
	if errors.Is(verErr, redis.Nil) {
		version, verErr = "", nil
	}

	profile, err := c.next.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	if verErr == nil {
		c.fill(ctx, userID, version, profile)
	}
	return profile, nil
}

// fill caches the profile unless a Write has bumped the version since it was read.
func (c *CachedProfileStore) fill(ctx context.Context, userID, version string, profile *models.UserProfile) {
	payload, err := json.Marshal(profile)
	if err != nil {
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(userID)).Result()
		if errors.Is(err, redis.Nil) {
			current, err = "", nil
		}
		if err != nil {
			return err
		}
		if current != version {
			return redis.TxFailedErr
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(userID), payload, c.ttl)
			return nil
		})
		return err
	}, versionKey(userID))

	switch {
	case errors.Is(err, redis.TxFailedErr):
		c.log.Debug("skipping stale profile cache fill", zap.String("user_id", userID))
	case err != nil:
		c.log.Warn("profile cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (c *CachedProfileStore) Write(ctx context.Context, userID string, profile *models.UserProfile) error {
	if err := c.next.Write(ctx, userID, profile); err != nil {
		return err
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(userID))
		pipe.Expire(ctx, versionKey(userID), c.ttl+time.Minute)
		return nil
	})
	if err != nil {
		c.log.Warn("profile cache version bump failed", zap.String("user_id", userID), zap.Error(err))
	}
	c.invalidate(ctx, userID)
	return nil
}

func (c *CachedProfileStore) invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		c.log.Warn("profile cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const digestKeyPrefix = "imagegate:digest:"

// DigestCache maps exact content digests to the upload that was classified
// for them. The document store stays the source of truth.
type DigestCache struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDigestCache creates a digest cache on the given client.
func NewDigestCache(client rueidis.Client, ttl time.Duration, logger *zap.Logger) *DigestCache {
	return &DigestCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("digest_cache"),
	}
}

// Lookup returns the upload ID recorded for digest.
func (c *DigestCache) Lookup(ctx context.Context, digest string) (string, bool, error) {
	uploadID, err := c.client.Do(ctx, c.client.B().Get().Key(digestKeyPrefix+digest).Build()).ToString()
	if rueidis.IsRedisNil(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read digest cache: %w", err)
	}
	return uploadID, true, nil
}

// Remember records uploadID for digest, replacing any older entry.
func (c *DigestCache) Remember(ctx context.Context, digest, uploadID string) error {
	cmd := c.client.B().Set().Key(digestKeyPrefix + digest).Value(uploadID)
	var err error
	if seconds := int64(c.ttl / time.Second); seconds > 0 {
		err = c.client.Do(ctx, cmd.ExSeconds(seconds).Build()).Error()
	} else {
		err = c.client.Do(ctx, cmd.Build()).Error()
	}
	if err != nil {
		return fmt.Errorf("failed to write digest cache: %w", err)
	}

	c.logger.Debug("Cached digest", zap.String("uploadID", uploadID))
	return nil
}

// Forget drops the entry for digest.
func (c *DigestCache) Forget(ctx context.Context, digest string) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(digestKeyPrefix+digest).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete digest cache entry: %w", err)
	}
	return nil
}

package moderation

import (
	"context"
	"errors"

	"github.com/robalyx/imagegate/internal/database"
	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/fingerprint"
	"go.uber.org/zap"
)

// DigestCache is a fast exact-match lookup in front of the store.
type DigestCache interface {
	Lookup(ctx context.Context, digest string) (uploadID string, ok bool, err error)
	Remember(ctx context.Context, digest, uploadID string) error
	Forget(ctx context.Context, digest string) error
}

// Match is a previously classified upload whose verdict can be reused.
type Match struct {
	Upload   *types.Upload
	Distance int
	Exact    bool
}

// DuplicateIndex finds earlier classified uploads with the same or similar content.
// Only classified uploads are candidates, so a chain of near duplicates always
// resolves to the upload that was actually scored.
type DuplicateIndex struct {
	store     database.Store
	cache     DigestCache
	threshold int
	scanLimit int
	logger    *zap.Logger
}

// NewDuplicateIndex creates an index over store. cache may be nil.
func NewDuplicateIndex(store database.Store, cache DigestCache, cfg Config, logger *zap.Logger) *DuplicateIndex {
	return &DuplicateIndex{
		store:     store,
		cache:     cache,
		threshold: cfg.HammingThreshold,
		scanLimit: cfg.BucketScanLimit,
		logger:    logger.Named("duplicate_index"),
	}
}

// Lookup tries an exact match first, then a near match.
func (d *DuplicateIndex) Lookup(ctx context.Context, fp types.Fingerprint) (*Match, error) {
	upload, err := d.FindExact(ctx, fp.ExactDigest)
	if err != nil {
		return nil, err
	}
	if upload != nil {
		return &Match{Upload: upload, Distance: 0, Exact: true}, nil
	}
	return d.FindNear(ctx, fp)
}

// FindExact returns the most recent classified upload with the digest, or nil.
func (d *DuplicateIndex) FindExact(ctx context.Context, digest string) (*types.Upload, error) {
	if d.cache != nil {
		uploadID, ok, err := d.cache.Lookup(ctx, digest)
		if err != nil {
			d.logger.Warn("Digest cache lookup failed", zap.Error(err))
		}
		if ok {
			upload, err := d.store.GetUpload(ctx, uploadID)
			switch {
			case err == nil && upload.Fingerprint.ExactDigest == digest && upload.IsClassified():
				return upload, nil
			case err != nil && !errors.Is(err, types.ErrNotFound):
				return nil, err
			}
			d.logger.Debug("Dropping stale digest cache entry", zap.String("uploadID", uploadID))
			if err := d.cache.Forget(ctx, digest); err != nil {
				d.logger.Warn("Failed to drop stale digest cache entry", zap.Error(err))
			}
		}
	}

	upload, err := d.store.FindUploadByDigest(ctx, digest)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	d.remember(ctx, upload)
	return upload, nil
}

// FindNear scans the prefix bucket for the closest upload within the
// threshold. Ties keep the first candidate seen, which is the most recent.
func (d *DuplicateIndex) FindNear(ctx context.Context, fp types.Fingerprint) (*Match, error) {
	candidates, err := d.store.ListUploadsByPrefix(ctx, fp.PerceptualPrefix, d.scanLimit)
	if err != nil {
		return nil, err
	}

	var best *Match
	for _, candidate := range candidates {
		distance, err := fingerprint.Distance(fp.PerceptualHash, candidate.Fingerprint.PerceptualHash)
		if err != nil {
			d.logger.Warn("Skipping candidate with malformed hash",
				zap.String("uploadID", candidate.ID),
				zap.Error(err))
			continue
		}
		if distance > d.threshold {
			continue
		}
		if best == nil || distance < best.Distance {
			best = &Match{Upload: candidate, Distance: distance}
		}
	}

	return best, nil
}

// Remember records a classified upload in the digest cache.
func (d *DuplicateIndex) Remember(ctx context.Context, upload *types.Upload) {
	if upload.IsClassified() {
		d.remember(ctx, upload)
	}
}

func (d *DuplicateIndex) remember(ctx context.Context, upload *types.Upload) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Remember(ctx, upload.Fingerprint.ExactDigest, upload.ID); err != nil {
		d.logger.Warn("Failed to update digest cache", zap.Error(err))
	}
}

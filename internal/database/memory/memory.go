// Package memory provides an in-process Store for tests and single-node development.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/robalyx/imagegate/internal/database"
	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
)

// Store keeps all documents in maps guarded by one lock. Transactions hold
// the write lock for their whole duration, so they are fully serialised.
type Store struct {
	mu      sync.RWMutex
	uploads map[string]*types.Upload
	order   []string
	cases   map[string]*types.ReviewCase
	states  map[string]*types.UserModerationState
}

var _ database.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		uploads: make(map[string]*types.Upload),
		cases:   make(map[string]*types.ReviewCase),
		states:  make(map[string]*types.UserModerationState),
	}
}

// SaveUpload implements database.Store.
func (s *Store) SaveUpload(_ context.Context, upload *types.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uploads[upload.ID]; ok {
		return fmt.Errorf("%w: upload %s already exists", types.ErrConflict, upload.ID)
	}
	s.uploads[upload.ID] = cloneUpload(upload)
	s.order = append(s.order, upload.ID)
	return nil
}

// GetUpload implements database.Store.
func (s *Store) GetUpload(_ context.Context, id string) (*types.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	upload, ok := s.uploads[id]
	if !ok {
		return nil, fmt.Errorf("%w: upload %s", types.ErrNotFound, id)
	}
	return cloneUpload(upload), nil
}

// FindUploadByDigest implements database.Store.
func (s *Store) FindUploadByDigest(_ context.Context, digest string) (*types.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, upload := range s.newestFirst() {
		if upload.IsClassified() && upload.Fingerprint.ExactDigest == digest {
			return cloneUpload(upload), nil
		}
	}
	return nil, fmt.Errorf("%w: upload with digest %s", types.ErrNotFound, digest)
}

// ListUploadsByPrefix implements database.Store.
func (s *Store) ListUploadsByPrefix(_ context.Context, prefix string, limit int) ([]*types.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Upload
	for _, upload := range s.newestFirst() {
		if len(out) >= limit {
			break
		}
		if upload.IsClassified() && upload.Fingerprint.PerceptualPrefix == prefix {
			out = append(out, cloneUpload(upload))
		}
	}
	return out, nil
}

// newestFirst orders uploads by creation time, latest insert winning ties.
func (s *Store) newestFirst() []*types.Upload {
	out := make([]*types.Upload, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.uploads[s.order[i]])
	}
	slices.SortStableFunc(out, func(a, b *types.Upload) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// GetReviewCase implements database.Store.
func (s *Store) GetReviewCase(_ context.Context, id string) (*types.ReviewCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reviewCase, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: review case %s", types.ErrNotFound, id)
	}
	return reviewCase.Clone(), nil
}

// ListOpenReviewCases implements database.Store.
func (s *Store) ListOpenReviewCases(_ context.Context, limit int) ([]*types.ReviewCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.ReviewCase
	for _, reviewCase := range s.cases {
		if reviewCase.IsOpen() {
			out = append(out, reviewCase.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *types.ReviewCase) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetUserState implements database.Store.
func (s *Store) GetUserState(_ context.Context, userID string) (*types.UserModerationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if state, ok := s.states[userID]; ok {
		cp := *state
		return &cp, nil
	}
	return types.NewUserModerationState(userID), nil
}

// RunInTx implements database.Store. Writes are staged and applied only when
// fn succeeds and the staged cases keep one open case per user.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx database.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:  s,
		cases:  make(map[string]*types.ReviewCase),
		states: make(map[string]*types.UserModerationState),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.checkOpenCases(); err != nil {
		return err
	}

	for id, reviewCase := range tx.cases {
		s.cases[id] = reviewCase
	}
	for id, state := range tx.states {
		s.states[id] = state
	}
	return nil
}

// Ping implements database.Store.
func (s *Store) Ping(context.Context) error { return nil }

// Close implements database.Store.
func (s *Store) Close() error { return nil }

type memTx struct {
	store  *Store
	cases  map[string]*types.ReviewCase
	states map[string]*types.UserModerationState
}

func (t *memTx) GetUserState(_ context.Context, userID string) (*types.UserModerationState, error) {
	state, ok := t.states[userID]
	if !ok {
		state, ok = t.store.states[userID]
	}
	if !ok {
		return types.NewUserModerationState(userID), nil
	}
	cp := *state
	return &cp, nil
}

func (t *memTx) SaveUserState(_ context.Context, state *types.UserModerationState) error {
	cp := *state
	t.states[state.UserID] = &cp
	return nil
}

func (t *memTx) FindOpenReviewCase(_ context.Context, userID string) (*types.ReviewCase, error) {
	var found *types.ReviewCase
	for id, reviewCase := range t.merged() {
		if reviewCase.UserID != userID || !reviewCase.IsOpen() {
			continue
		}
		if found == nil || reviewCase.CreatedAt.Before(found.CreatedAt) ||
			(reviewCase.CreatedAt.Equal(found.CreatedAt) && id < found.ID) {
			found = reviewCase
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: open review case for user %s", types.ErrNotFound, userID)
	}
	return found.Clone(), nil
}

func (t *memTx) GetReviewCase(_ context.Context, id string) (*types.ReviewCase, error) {
	reviewCase, ok := t.cases[id]
	if !ok {
		reviewCase, ok = t.store.cases[id]
	}
	if !ok {
		return nil, fmt.Errorf("%w: review case %s", types.ErrNotFound, id)
	}
	return reviewCase.Clone(), nil
}

func (t *memTx) SaveReviewCase(_ context.Context, reviewCase *types.ReviewCase) error {
	t.cases[reviewCase.ID] = reviewCase.Clone()
	return nil
}

// merged returns committed cases overlaid with staged ones.
func (t *memTx) merged() map[string]*types.ReviewCase {
	out := make(map[string]*types.ReviewCase, len(t.store.cases)+len(t.cases))
	for id, reviewCase := range t.store.cases {
		out[id] = reviewCase
	}
	for id, reviewCase := range t.cases {
		out[id] = reviewCase
	}
	return out
}

// checkOpenCases mirrors the partial unique index on open cases.
func (t *memTx) checkOpenCases() error {
	open := make(map[string]string)
	for id, reviewCase := range t.merged() {
		if reviewCase.Status != enum.ReviewStatusInReview {
			continue
		}
		if other, ok := open[reviewCase.UserID]; ok {
			return fmt.Errorf("%w: user %s already has open case %s (caseID=%s)",
				types.ErrConflict, reviewCase.UserID, other, id)
		}
		open[reviewCase.UserID] = id
	}
	return nil
}

func cloneUpload(u *types.Upload) *types.Upload {
	cp := *u
	cp.MakerTags = slices.Clone(u.MakerTags)
	cp.AppliedTriggers = slices.Clone(u.AppliedTriggers)
	cp.SuggestedTriggers = slices.Clone(u.SuggestedTriggers)
	cp.ForbiddenReasons = slices.Clone(u.ForbiddenReasons)
	return &cp
}

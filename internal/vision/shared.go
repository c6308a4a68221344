package vision

import (
	"context"
	"sync"
	"time"

	"github.com/robalyx/imagegate/internal/moderation"
	"github.com/robalyx/imagegate/pkg/utils"
	visionv1 "google.golang.org/api/vision/v1"
)

// sharedCallTTL bounds how long a finished annotation stays available to
// scorers that ask for the same image.
const sharedCallTTL = time.Minute

// ImageAnnotator returns the annotation of an image carrying every feature
// the scorers read.
type ImageAnnotator interface {
	AnnotateImage(ctx context.Context, img *moderation.Image) (*visionv1.AnnotateImageResponse, error)
}

// SharedAnnotator requests safe-search and labels in one annotate call per
// image and hands the response to every scorer that asks for it. Calls are
// keyed by the exact digest.
type SharedAnnotator struct {
	annotator Annotator
	features  []*visionv1.Feature
	calls     *utils.TTLMap[string, *sharedCall]
}

type sharedCall struct {
	once sync.Once
	res  *visionv1.AnnotateImageResponse
	err  error
}

// NewSharedAnnotator wraps annotator. Call Close to stop the expiry loop.
func NewSharedAnnotator(annotator Annotator, maxLabels int64) *SharedAnnotator {
	if maxLabels <= 0 {
		maxLabels = DefaultMaxLabels
	}
	return &SharedAnnotator{
		annotator: annotator,
		features: []*visionv1.Feature{
			{Type: FeatureSafeSearch},
			{Type: FeatureLabels, MaxResults: maxLabels},
		},
		calls: utils.NewTTLMap[string, *sharedCall](sharedCallTTL),
	}
}

// AnnotateImage implements ImageAnnotator. Failed calls are not kept, so the
// next request for the image tries again.
func (s *SharedAnnotator) AnnotateImage(
	ctx context.Context, img *moderation.Image,
) (*visionv1.AnnotateImageResponse, error) {
	key := img.Fingerprint.ExactDigest
	if key == "" {
		return s.annotator.Annotate(ctx, img.Data, s.features...)
	}

	call := s.calls.GetOrSet(key, func() *sharedCall { return &sharedCall{} })
	call.once.Do(func() {
		call.res, call.err = s.annotator.Annotate(ctx, img.Data, s.features...)
		if call.err != nil {
			s.calls.Delete(key)
		}
	})
	return call.res, call.err
}

// Close stops the expiry loop.
func (s *SharedAnnotator) Close() error {
	s.calls.Close()
	return nil
}

// Package vision adapts Cloud Vision safe-search and label detection into
// moderation scorers.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/setup/config"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	visionv1 "google.golang.org/api/vision/v1"
)

// Feature types understood by the annotate endpoint.
const (
	FeatureSafeSearch = "SAFE_SEARCH_DETECTION"
	FeatureLabels     = "LABEL_DETECTION"
)

// Annotator runs one annotate request for a single image.
type Annotator interface {
	Annotate(ctx context.Context, data []byte, features ...*visionv1.Feature) (*visionv1.AnnotateImageResponse, error)
}

// Client calls the Cloud Vision REST API.
type Client struct {
	service *visionv1.Service
	logger  *zap.Logger
}

// NewClient creates a Cloud Vision client. Application default credentials
// are used when no API key is configured.
func NewClient(ctx context.Context, cfg *config.Vision, logger *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := visionv1.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}

	return &Client{
		service: service,
		logger:  logger.Named("vision"),
	}, nil
}

// Annotate sends the image inline and returns its single response.
func (c *Client) Annotate(
	ctx context.Context, data []byte, features ...*visionv1.Feature,
) (*visionv1.AnnotateImageResponse, error) {
	req := &visionv1.BatchAnnotateImagesRequest{
		Requests: []*visionv1.AnnotateImageRequest{{
			Image:    &visionv1.Image{Content: base64.StdEncoding.EncodeToString(data)},
			Features: features,
		}},
	}

	resp, err := c.service.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: vision annotate: %w", types.ErrUpstreamScorer, err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("%w: vision returned no responses", types.ErrUpstreamScorer)
	}

	res := resp.Responses[0]
	if res.Error != nil && res.Error.Code != 0 {
		return nil, fmt.Errorf("%w: vision error %d: %s", types.ErrUpstreamScorer, res.Error.Code, res.Error.Message)
	}

	c.logger.Debug("Vision annotation complete",
		zap.Int("features", len(features)),
		zap.Int("labels", len(res.LabelAnnotations)),
		zap.Bool("safeSearch", res.SafeSearchAnnotation != nil))

	return res, nil
}

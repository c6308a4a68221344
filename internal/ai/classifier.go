package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/generative-ai-go/genai"
	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/moderation"
	"github.com/robalyx/imagegate/internal/setup/config"
	"github.com/robalyx/imagegate/pkg/utils"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/json"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ContentGenerator is the part of a generative model the classifier uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// classificationSchema constrains the model output.
var classificationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"triggers": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"trigger": {
						Type:        genai.TypeString,
						Description: "camelCase trigger name",
					},
					"confidence": {
						Type:        genai.TypeNumber,
						Description: "Confidence between 0 and 1",
					},
					"severity": {
						Type: genai.TypeString,
						Enum: []string{"suggest", "forbidden"},
					},
				},
				Required: []string{"trigger", "confidence", "severity"},
			},
		},
		"forbiddenReasons": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"triggers", "forbiddenReasons"},
}

// NewModel configures a generative model for classification.
func NewModel(client *genai.Client, cfg *config.LLM) *genai.GenerativeModel {
	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(ClassifierSystemPrompt))
	model.ResponseMIMEType = ApplicationJSON
	model.ResponseSchema = classificationSchema
	model.Temperature = utils.Ptr(cfg.Temperature)
	model.TopP = utils.Ptr(float32(0.1))
	model.TopK = utils.Ptr(int32(1))
	return model
}

// Classifier is the optional LLM scorer. It only proposes triggers the
// vision scorers do not cover.
type Classifier struct {
	model   ContentGenerator
	minify  *minify.M
	sem     *semaphore.Weighted
	maxSide int
	logger  *zap.Logger
}

// NewClassifier creates a classifier over model.
func NewClassifier(model ContentGenerator, cfg *config.LLM, logger *zap.Logger) *Classifier {
	m := minify.New()
	m.AddFunc(ApplicationJSON, json.Minify)

	return &Classifier{
		model:   model,
		minify:  m,
		sem:     semaphore.NewWeighted(max(cfg.MaxConcurrent, 1)),
		maxSide: cfg.MaxImageSide,
		logger:  logger.Named("ai_classifier"),
	}
}

// Name implements moderation.Scorer.
func (c *Classifier) Name() string { return "llm" }

// Score implements moderation.Scorer. A response that cannot be parsed
// yields no signals rather than an error.
func (c *Classifier) Score(ctx context.Context, img *moderation.Image) ([]moderation.Signal, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: llm: %w", types.ErrUpstreamScorer, err)
	}
	defer c.sem.Release(1)

	data, err := NormalizeImage(img.Data, img.MIMEType, c.maxSide)
	if err != nil {
		return nil, fmt.Errorf("%w: llm: %w", types.ErrUpstreamScorer, err)
	}

	prompt, err := c.prompt(img.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("%w: llm: %w", types.ErrUpstreamScorer, err)
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt), genai.ImageData("webp", data))
	if err != nil {
		return nil, fmt.Errorf("%w: llm: %w", types.ErrUpstreamScorer, err)
	}

	text := responseText(resp)
	result, ok := Parse(text)
	if !ok {
		c.logger.Warn("Discarding unparseable classifier response", zap.Int("length", len(text)))
		return nil, nil
	}

	signals := result.Signals()
	c.logger.Debug("Classifier response parsed",
		zap.Int("proposed", len(result.Triggers)),
		zap.Int("kept", len(signals)))

	return signals, nil
}

// prompt renders the request prompt with a minified payload.
func (c *Classifier) prompt(mimeType string) (string, error) {
	payload, err := sonic.Marshal(PromptPayload{
		MIMEType:         mimeType,
		ExcludedTriggers: ExcludedTriggers,
		Severities:       []string{"suggest", "forbidden"},
	})
	if err != nil {
		return "", err
	}

	payload, err = c.minify.Bytes(ApplicationJSON, payload)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(ClassifierRequestPrompt, payload), nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

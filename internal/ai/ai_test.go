package ai_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/robalyx/imagegate/internal/ai"
	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
	"github.com/robalyx/imagegate/internal/fingerprint"
	"github.com/robalyx/imagegate/internal/fingerprint/fingerprinttest"
	"github.com/robalyx/imagegate/internal/moderation"
	"github.com/robalyx/imagegate/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/image/webp"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		wantOK   bool
		wantTrig int
	}{
		{
			name:     "bare object",
			text:     `{"triggers":[{"trigger":"clowns","confidence":0.8,"severity":"suggest"}],"forbiddenReasons":[]}`,
			wantOK:   true,
			wantTrig: 1,
		},
		{
			name:     "code fence and chatter",
			text:     "Sure! Here you go:\n```json\n{\"triggers\":[{\"trigger\":\"snakes\",\"confidence\":0.5,\"severity\":\"suggest\"}]}\n```\nLet me know.",
			wantOK:   true,
			wantTrig: 1,
		},
		{name: "no braces", text: "I cannot classify this image.", wantOK: false},
		{name: "reversed braces", text: "} nothing {", wantOK: false},
		{name: "invalid json", text: `{"triggers": [oops]}`, wantOK: false},
		{name: "empty", text: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, ok := ai.Parse(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Len(t, result.Triggers, tt.wantTrig)
		})
	}
}

func TestClassificationSignals(t *testing.T) {
	t.Parallel()

	result := ai.Classification{
		Triggers: []ai.TriggerAssessment{
			{Trigger: "nudityErotic", Confidence: 0.9, Severity: "forbidden"},
			{Trigger: "spidersInsects", Confidence: 0.9, Severity: "suggest"},
			{Trigger: "bloodGore", Confidence: 1.7, Severity: "forbidden"},
			{Trigger: "clowns", Confidence: -0.2, Severity: "maybe"},
			{Trigger: "clowns", Confidence: 0.6, Severity: "suggest"},
			{Trigger: "not a trigger!", Confidence: 0.9, Severity: "suggest"},
			{Trigger: "", Confidence: 0.9, Severity: "suggest"},
		},
		ForbiddenReasons: []string{"Realistic depiction of a wound", " "},
	}

	signals := result.Signals()
	require.Len(t, signals, 2)

	assert.Equal(t, enum.Trigger("bloodGore"), signals[0].Trigger)
	assert.InDelta(t, 1.0, signals[0].Score, 1e-9)
	assert.Equal(t, enum.SeverityForbidden, signals[0].Severity)
	assert.Equal(t, "Realistic depiction of a wound", signals[0].Reason)
	assert.Equal(t, enum.TriggerSourceLLM, signals[0].Source)

	assert.Equal(t, enum.Trigger("clowns"), signals[1].Trigger)
	assert.InDelta(t, 0.6, signals[1].Score, 1e-9)
	assert.Equal(t, enum.SeveritySuggest, signals[1].Severity)
	assert.Empty(t, signals[1].Reason)
}

// fakeModel records the parts it was given and returns canned text.
type fakeModel struct {
	text  string
	err   error
	parts []genai.Part
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(f.text)}},
		}},
	}, nil
}

func testImage(t *testing.T) *moderation.Image {
	t.Helper()
	return &moderation.Image{
		Data:     fingerprinttest.PNGForHash(t, 0x0123456789abcdef),
		MIMEType: fingerprint.MIMEPNG,
	}
}

func TestClassifier(t *testing.T) {
	t.Parallel()

	cfg := &config.LLM{MaxConcurrent: 2, MaxImageSide: 64}

	t.Run("sends prompt and normalized image", func(t *testing.T) {
		t.Parallel()

		model := &fakeModel{text: `{"triggers":[{"trigger":"flashingLights","confidence":0.75,"severity":"suggest"}],"forbiddenReasons":[]}`}
		classifier := ai.NewClassifier(model, cfg, zap.NewNop())
		assert.Equal(t, "llm", classifier.Name())

		signals, err := classifier.Score(t.Context(), testImage(t))
		require.NoError(t, err)
		require.Len(t, signals, 1)
		assert.Equal(t, enum.Trigger("flashingLights"), signals[0].Trigger)

		require.Len(t, model.parts, 2)
		prompt, ok := model.parts[0].(genai.Text)
		require.True(t, ok)
		assert.Contains(t, string(prompt), `"excludedTriggers":["nudityErotic","explicit18","needlesInjections","spidersInsects"]`)

		blob, ok := model.parts[1].(genai.Blob)
		require.True(t, ok)
		assert.Equal(t, ai.ImageWebP, blob.MIMEType)
		_, err = webp.DecodeConfig(bytes.NewReader(blob.Data))
		require.NoError(t, err)
	})

	t.Run("unparseable response yields no signals", func(t *testing.T) {
		t.Parallel()

		classifier := ai.NewClassifier(&fakeModel{text: "I'd rather not."}, cfg, zap.NewNop())
		signals, err := classifier.Score(t.Context(), testImage(t))
		require.NoError(t, err)
		assert.Empty(t, signals)
	})

	t.Run("model error is an upstream failure", func(t *testing.T) {
		t.Parallel()

		classifier := ai.NewClassifier(&fakeModel{err: errors.New("quota")}, cfg, zap.NewNop())
		_, err := classifier.Score(t.Context(), testImage(t))
		require.ErrorIs(t, err, types.ErrUpstreamScorer)
	})
}

func TestNormalizeImage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20))))

	out, err := ai.NormalizeImage(buf.Bytes(), fingerprint.MIMEPNG, 10)
	require.NoError(t, err)

	cfg, err := webp.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)

	small, err := ai.NormalizeImage(buf.Bytes(), fingerprint.MIMEPNG, 100)
	require.NoError(t, err)
	cfg, err = webp.DecodeConfig(bytes.NewReader(small))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)

	_, err = ai.NormalizeImage([]byte("junk"), fingerprint.MIMEPNG, 10)
	require.ErrorIs(t, err, types.ErrDecode)
}

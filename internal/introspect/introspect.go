// Package introspect periodically reviews the mood journal and proposes
// small temperament adjustments, the slow "personality settles" loop.
// Proposals go through the temperament controller, so the weekly drift
// cap and clamps still apply.
package introspect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/elara-ai/affect/internal/models"
)

// maxProposedDelta caps a single proposed adjustment per dimension. The
// weekly cap downstream is the real guard; this keeps one bad LLM reply
// from consuming the whole week's budget.
const maxProposedDelta = 0.02

// Introspector asks Claude to read recent mood history and suggest
// temperament drift. Without an API key it degrades to a no-op.
type Introspector struct {
	client  *anthropic.Client
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates an introspector. An empty apiKey returns one that always
// proposes nothing.
func New(apiKey, model string, logger *slog.Logger) *Introspector {
	in := &Introspector{
		model: model,
		// At most one introspection per 10 minutes; this is a slow loop.
		limiter: rate.NewLimiter(rate.Limit(1.0/600), 1),
		logger:  logger,
	}
	if apiKey != "" {
		client := anthropic.NewClient(option.WithAPIKey(apiKey))
		in.client = &client
	}
	return in
}

// Enabled reports whether an API key was configured.
func (in *Introspector) Enabled() bool {
	return in.client != nil
}

const introspectionPromptTemplate = `You observe an assistant's mood history and suggest tiny temperament shifts.

The assistant's affect has three dimensions:
- valence: negative/positive tone, range [-1, 1]
- energy: low/high activation, range [0, 1]
- openness: guarded/receptive, range [0, 1]

Temperament is the resting baseline mood decays toward. If the recent
history shows a sustained lean, the baseline may shift slightly in that
direction. Suggest per-dimension deltas, each within [-0.02, 0.02].
Suggest 0 or omit a dimension when the history does not justify a shift.

Recent mood journal (oldest first):
<journal>
%s
</journal>

Return only JSON: {"valence": <delta>, "energy": <delta>, "openness": <delta>, "reason": "<one sentence>"}`

// Proposal is one suggested temperament adjustment.
type Proposal struct {
	Adjustments map[models.Dimension]float64
	Reason      string
}

type proposalJSON struct {
	Valence  float64 `json:"valence"`
	Energy   float64 `json:"energy"`
	Openness float64 `json:"openness"`
	Reason   string  `json:"reason"`
}

// ProposeAdjustments reviews the given journal entries and returns a
// proposal, or nil when there is nothing to suggest. Rate-limited;
// callers that hit the limit get nil without an API call.
func (in *Introspector) ProposeAdjustments(ctx context.Context, entries []models.MoodJournalEntry) (*Proposal, error) {
	if in.client == nil || len(entries) == 0 {
		return nil, nil
	}
	if !in.limiter.Allow() {
		in.logger.Debug("introspection rate-limited, skipping")
		return nil, nil
	}

	prompt := fmt.Sprintf(introspectionPromptTemplate, formatJournal(entries))

	resp, err := in.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(in.model),
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: "You are a careful observer of affective patterns. Output only valid JSON."},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}

	var responseText string
	for _, block := range resp.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("empty response from Claude")
	}
	in.logger.Debug("introspection response", "response", responseText)

	return ParseProposal(responseText)
}

// ParseProposal parses and clamps a raw model reply. Exposed for tests.
func ParseProposal(raw string) (*Proposal, error) {
	raw = strings.TrimSpace(raw)
	// Models sometimes wrap JSON in a fence despite instructions.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var p proposalJSON
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("parsing introspection response: %w (raw: %s)", err, raw)
	}

	adjustments := make(map[models.Dimension]float64)
	for dim, delta := range map[models.Dimension]float64{
		models.DimValence:  p.Valence,
		models.DimEnergy:   p.Energy,
		models.DimOpenness: p.Openness,
	} {
		if math.IsNaN(delta) || math.IsInf(delta, 0) || delta == 0 {
			continue
		}
		adjustments[dim] = math.Max(-maxProposedDelta, math.Min(maxProposedDelta, delta))
	}
	if len(adjustments) == 0 {
		return nil, nil
	}
	return &Proposal{Adjustments: adjustments, Reason: p.Reason}, nil
}

func formatJournal(entries []models.MoodJournalEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s v=%.2f e=%.2f o=%.2f emotion=%s",
			e.Timestamp.Format("2006-01-02 15:04"), e.Valence, e.Energy, e.Openness, e.Emotion)
		if e.Reason != "" {
			fmt.Fprintf(&b, " reason=%q", e.Reason)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

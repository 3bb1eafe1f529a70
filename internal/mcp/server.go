// Package mcp implements the Model Context Protocol server for the
// affect daemon, exposing mood, imprint, and recall tools to agents.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/elara-ai/affect/internal/emotion"
	"github.com/elara-ai/affect/internal/index"
	"github.com/elara-ai/affect/internal/models"
	"github.com/elara-ai/affect/internal/mood"
	"github.com/elara-ai/affect/internal/recall"
)

// defaultRecallLimit is the default number of recall results.
const defaultRecallLimit = 5

// Server wraps an MCPServer with the affect engine dependencies.
type Server struct {
	mcp         *mcpserver.MCPServer
	engine      *mood.Engine
	ledger      *mood.Ledger
	temperament *mood.Controller
	ranker      *recall.Ranker
	classifier  *emotion.Classifier
	logger      *slog.Logger
}

// NewServer creates a new MCP server. A nil ranker disables the recall
// tool gracefully instead of panicking.
func NewServer(eng *mood.Engine, ledger *mood.Ledger, temp *mood.Controller, ranker *recall.Ranker, logger *slog.Logger) *Server {
	s := &Server{
		engine:      eng,
		ledger:      ledger,
		temperament: temp,
		ranker:      ranker,
		classifier:  emotion.New(),
		logger:      logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"elara-affect",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildGetMoodTool(), s.handleGetMood)
	mcpSrv.AddTool(buildAdjustMoodTool(), s.handleAdjustMood)
	mcpSrv.AddTool(buildSetMoodTool(), s.handleSetMood)
	mcpSrv.AddTool(buildCreateImprintTool(), s.handleCreateImprint)
	mcpSrv.AddTool(buildGetImprintsTool(), s.handleGetImprints)
	mcpSrv.AddTool(buildResolveEmotionsTool(), s.handleResolveEmotions)
	mcpSrv.AddTool(buildRecallTool(), s.handleRecall)
	mcpSrv.AddTool(buildTemperamentTool(), s.handleTemperament)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleGetMood is the exported handler for the "get_mood" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleGetMood(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGetMood(ctx, req)
}

// HandleAdjustMood is the exported handler for the "adjust_mood" tool.
func (s *Server) HandleAdjustMood(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAdjustMood(ctx, req)
}

// HandleCreateImprint is the exported handler for the "create_imprint" tool.
func (s *Server) HandleCreateImprint(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleCreateImprint(ctx, req)
}

// HandleRecall is the exported handler for the "recall" tool.
func (s *Server) HandleRecall(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRecall(ctx, req)
}

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// --- tool definitions ---

func buildGetMoodTool() mcpgo.Tool {
	return mcpgo.NewTool("get_mood",
		mcpgo.WithDescription("Get the current mood: valence, energy, openness, the nearest named emotion, and a readable description. Reading applies elapsed-time decay."),
	)
}

func buildAdjustMoodTool() mcpgo.Tool {
	return mcpgo.NewTool("adjust_mood",
		mcpgo.WithDescription("Nudge the mood by per-dimension deltas. Values that would push past the bounds are clamped."),
		mcpgo.WithNumber("valence",
			mcpgo.Description("Delta to valence, range [-1,1]"),
		),
		mcpgo.WithNumber("energy",
			mcpgo.Description("Delta to energy, range [0,1]"),
		),
		mcpgo.WithNumber("openness",
			mcpgo.Description("Delta to openness, range [0,1]"),
		),
		mcpgo.WithString("reason",
			mcpgo.Description("Why the mood is shifting; recorded as residue"),
		),
	)
}

func buildSetMoodTool() mcpgo.Tool {
	return mcpgo.NewTool("set_mood",
		mcpgo.WithDescription("Overwrite mood dimensions with absolute values. Omitted dimensions keep their current value."),
		mcpgo.WithNumber("valence",
			mcpgo.Description("Absolute valence, range [-1,1]"),
		),
		mcpgo.WithNumber("energy",
			mcpgo.Description("Absolute energy, range [0,1]"),
		),
		mcpgo.WithNumber("openness",
			mcpgo.Description("Absolute openness, range [0,1]"),
		),
		mcpgo.WithString("reason",
			mcpgo.Description("Why the mood is being set"),
		),
	)
}

func buildCreateImprintTool() mcpgo.Tool {
	return mcpgo.NewTool("create_imprint",
		mcpgo.WithDescription("Record an emotional imprint: a feeling that lingers and decays over days."),
		mcpgo.WithString("feeling",
			mcpgo.Required(),
			mcpgo.Description("What the imprint feels like"),
		),
		mcpgo.WithNumber("strength",
			mcpgo.Required(),
			mcpgo.Description("Initial strength in (0,1]"),
		),
		mcpgo.WithString("type",
			mcpgo.Description("Imprint kind, e.g. moment, milestone, wound (default: moment)"),
		),
	)
}

func buildGetImprintsTool() mcpgo.Tool {
	return mcpgo.NewTool("get_imprints",
		mcpgo.WithDescription("List active imprints with decayed strengths. Imprints that have faded below threshold are archived."),
		mcpgo.WithNumber("min_strength",
			mcpgo.Description("Only return imprints at or above this strength (default: 0)"),
		),
	)
}

func buildResolveEmotionsTool() mcpgo.Tool {
	return mcpgo.NewTool("resolve_emotions",
		mcpgo.WithDescription("Resolve an affect vector (default: current mood) to its nearest named emotions, blend, and quadrant."),
		mcpgo.WithNumber("valence",
			mcpgo.Description("Valence to resolve, range [-1,1] (default: current)"),
		),
		mcpgo.WithNumber("energy",
			mcpgo.Description("Energy to resolve, range [0,1] (default: current)"),
		),
		mcpgo.WithNumber("openness",
			mcpgo.Description("Openness to resolve, range [0,1] (default: current)"),
		),
	)
}

func buildRecallTool() mcpgo.Tool {
	return mcpgo.NewTool("recall",
		mcpgo.WithDescription("Retrieve memories re-ranked by the current mood: semantically relevant AND emotionally resonant items surface first."),
		mcpgo.WithString("query",
			mcpgo.Required(),
			mcpgo.Description("The query to recall memories for"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of results (default: 5)"),
		),
		mcpgo.WithString("mode",
			mcpgo.Description("Ranking blend: mood (default) or conversational"),
		),
	)
}

func buildTemperamentTool() mcpgo.Tool {
	return mcpgo.NewTool("temperament_status",
		mcpgo.WithDescription("Get the temperament baseline, its drift from factory settings, and the drift budget used this week."),
	)
}

// --- tool handlers ---

func (s *Server) handleGetMood(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	v, err := s.engine.Mood()
	if err != nil {
		return mcpgo.NewToolResultErrorf("reading mood failed: %s", err.Error()), nil
	}
	return toolResultJSON(s.moodReadout(v))
}

func (s *Server) handleAdjustMood(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	d := mood.Deltas{
		Valence:  req.GetFloat("valence", 0),
		Energy:   req.GetFloat("energy", 0),
		Openness: req.GetFloat("openness", 0),
	}
	v, err := s.engine.Adjust(d, req.GetString("reason", ""))
	if err != nil {
		return mcpgo.NewToolResultErrorf("adjusting mood failed: %s", err.Error()), nil
	}
	s.logger.Info("mcp: mood adjusted", "valence", v.Valence, "energy", v.Energy, "openness", v.Openness)
	return toolResultJSON(s.moodReadout(v))
}

func (s *Server) handleSetMood(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	args := req.GetArguments()
	var valence, energy, openness *float64
	if _, ok := args["valence"]; ok {
		f := req.GetFloat("valence", 0)
		valence = &f
	}
	if _, ok := args["energy"]; ok {
		f := req.GetFloat("energy", 0)
		energy = &f
	}
	if _, ok := args["openness"]; ok {
		f := req.GetFloat("openness", 0)
		openness = &f
	}
	if valence == nil && energy == nil && openness == nil {
		return mcpgo.NewToolResultError("at least one dimension is required"), nil
	}

	v, err := s.engine.Set(valence, energy, openness, req.GetString("reason", ""))
	if err != nil {
		return mcpgo.NewToolResultErrorf("setting mood failed: %s", err.Error()), nil
	}
	return toolResultJSON(s.moodReadout(v))
}

func (s *Server) handleCreateImprint(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	feeling := req.GetString("feeling", "")
	if strings.TrimSpace(feeling) == "" {
		return mcpgo.NewToolResultError("feeling is required and must not be empty"), nil
	}
	strength := req.GetFloat("strength", 0)

	imp, err := s.ledger.Create(feeling, strength, req.GetString("type", ""))
	if err != nil {
		return mcpgo.NewToolResultErrorf("creating imprint failed: %s", err.Error()), nil
	}
	s.logger.Info("mcp: imprint created", "id", imp.ID, "feeling", imp.Feeling)
	return toolResultJSON(map[string]any{"id": imp.ID, "created": true})
}

func (s *Server) handleGetImprints(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	minStrength := req.GetFloat("min_strength", 0)
	imprints, err := s.ledger.Active(minStrength)
	if err != nil {
		return mcpgo.NewToolResultErrorf("listing imprints failed: %s", err.Error()), nil
	}
	return toolResultJSON(map[string]any{"imprints": imprints, "count": len(imprints)})
}

func (s *Server) handleResolveEmotions(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	v, err := s.engine.Mood()
	if err != nil {
		return mcpgo.NewToolResultErrorf("reading mood failed: %s", err.Error()), nil
	}

	args := req.GetArguments()
	if _, ok := args["valence"]; ok {
		v.Valence = req.GetFloat("valence", v.Valence)
	}
	if _, ok := args["energy"]; ok {
		v.Energy = req.GetFloat("energy", v.Energy)
	}
	if _, ok := args["openness"]; ok {
		v.Openness = req.GetFloat("openness", v.Openness)
	}
	if err := v.Validate(); err != nil {
		return mcpgo.NewToolResultErrorf("invalid affect vector: %s", err.Error()), nil
	}

	return toolResultJSON(s.classifier.ResolveContext(v))
}

func (s *Server) handleRecall(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.ranker == nil {
		return mcpgo.NewToolResultError("recall is unavailable: no semantic index configured"), nil
	}

	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcpgo.NewToolResultError("query is required and must not be empty"), nil
	}
	limit := req.GetInt("limit", defaultRecallLimit)
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	var opts recall.Options
	if req.GetString("mode", "mood") == "conversational" {
		opts.Weights = recall.ConversationalWeights()
	}

	set, err := s.ranker.Recall(ctx, index.Query{Text: query}, limit, opts)
	if err != nil {
		return mcpgo.NewToolResultErrorf("recall failed: %s", err.Error()), nil
	}
	return toolResultJSON(set)
}

func (s *Server) handleTemperament(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	status, err := s.temperament.Status()
	if err != nil {
		return mcpgo.NewToolResultErrorf("reading temperament failed: %s", err.Error()), nil
	}
	return toolResultJSON(status)
}

func (s *Server) moodReadout(v models.AffectVector) map[string]any {
	primary := s.classifier.Primary(v)
	return map[string]any{
		"valence":     v.Valence,
		"energy":      v.Energy,
		"openness":    v.Openness,
		"emotion":     primary.Label,
		"blend":       s.classifier.Blend(v),
		"quadrant":    emotion.Quadrant(v),
		"description": s.classifier.Describe(v),
	}
}

// Package mcpserver exposes a Session over the Model Context Protocol
// (SPEC_FULL.md §12): execute, direct-match, assert-fact,
// push-theory/pop-theory/commit-theory, and get-stats.
//
// Grounded on the teacher's internal/server package: one struct
// wrapping the engine's collaborators, mcp.AddTool per tool with a
// typed request/response pair, and a toJSONContent-style text
// marshaller feeding mcp.CallToolResult.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"unified-thinking/internal/session"
	"unified-thinking/internal/stats"
	"unified-thinking/internal/types"
)

// Engine exposes a Session's reasoning surface as MCP tools.
type Engine struct {
	sess *session.Session
}

// New wraps sess for MCP tool registration.
func New(sess *session.Session) *Engine {
	return &Engine{sess: sess}
}

func toJSONContent(data any) []mcp.Content {
	jsonData, err := json.Marshal(data)
	if err != nil {
		jsonData, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return []mcp.Content{&mcp.TextContent{Text: string(jsonData)}}
}

// RegisterTools registers every engine tool on mcpServer.
func (e *Engine) RegisterTools(mcpServer *mcp.Server) {
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "execute",
		Description: "Classify a statement into knowns/holes and answer it via the full query pipeline",
	}, e.handleExecute)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "direct-match",
		Description: "Check whether a fully-known statement exists in the knowledge base",
	}, e.handleDirectMatch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "assert-fact",
		Description: "Store a new fact, encoding its hyperdimensional vector deterministically",
	}, e.handleAssertFact)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "push-theory",
		Description: "Push a hypothetical theory layer onto the session's theory stack",
	}, e.handlePushTheory)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "pop-theory",
		Description: "Pop the most recent theory layer, restoring the prior fact set",
	}, e.handlePopTheory)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "commit-theory",
		Description: "Commit the top theory layer, making its modifications permanent",
	}, e.handleCommitTheory)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "get-stats",
		Description: "Retrieve the session's reasoning statistics",
	}, e.handleGetStats)
}

// StatementInput is the wire shape of a Statement IR (§6).
type StatementInput struct {
	Operator string        `json:"operator"`
	Args     []ArgTermJSON `json:"args"`
}

// ArgTermJSON is the wire shape of an ArgTerm (§6): Kind is one of
// "identifier", "variable", "hole", "compound", "reference".
type ArgTermJSON struct {
	Kind     string        `json:"kind"`
	Name     string        `json:"name,omitempty"`
	Operator string        `json:"operator,omitempty"`
	Args     []ArgTermJSON `json:"args,omitempty"`
}

func (a ArgTermJSON) toArgTerm() types.ArgTerm {
	switch a.Kind {
	case "variable":
		return types.Var(types.Identifier(a.Name))
	case "hole":
		return types.HoleArg(types.Identifier(a.Name))
	case "reference":
		return types.Ref(types.Identifier(a.Name))
	case "compound":
		nested := make([]types.ArgTerm, len(a.Args))
		for i, c := range a.Args {
			nested[i] = c.toArgTerm()
		}
		return types.CompoundArg(types.Identifier(a.Operator), nested...)
	default:
		return types.Ident(types.Identifier(a.Name))
	}
}

func toArgTerms(args []ArgTermJSON) []types.ArgTerm {
	out := make([]types.ArgTerm, len(args))
	for i, a := range args {
		out[i] = a.toArgTerm()
	}
	return out
}

// ExecuteRequest is the execute tool's input.
type ExecuteRequest struct {
	Statement  StatementInput `json:"statement"`
	MaxResults int            `json:"max_results,omitempty"`
}

// ExecuteResponse mirrors types.Result over the wire.
type ExecuteResponse struct {
	Success    bool                        `json:"success"`
	Bindings   map[string]BindingEntryJSON `json:"bindings,omitempty"`
	Confidence float64                     `json:"confidence"`
	Ambiguous  bool                        `json:"ambiguous"`
	Reason     string                      `json:"reason,omitempty"`
	AllResults []ScoredResultJSON          `json:"all_results,omitempty"`
}

type BindingEntryJSON struct {
	Answer       string   `json:"answer"`
	Similarity   float64  `json:"similarity"`
	Method       string   `json:"method"`
	Steps        []string `json:"steps,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

type ScoredResultJSON struct {
	Bindings map[string]string `json:"bindings"`
	Score    float64           `json:"score"`
	Method   string            `json:"method"`
	Steps    []string          `json:"steps,omitempty"`
	Depth    int               `json:"depth,omitempty"`
}

func toExecuteResponse(r types.Result) *ExecuteResponse {
	resp := &ExecuteResponse{
		Success:    r.Success,
		Confidence: r.Confidence,
		Ambiguous:  r.Ambiguous,
		Reason:     r.Reason,
	}
	if r.Bindings != nil {
		resp.Bindings = make(map[string]BindingEntryJSON, len(r.Bindings))
		for k, v := range r.Bindings {
			resp.Bindings[string(k)] = BindingEntryJSON{
				Answer: v.Answer, Similarity: v.Similarity, Method: string(v.Method),
				Steps: v.Steps, Alternatives: v.Alternatives,
			}
		}
	}
	for _, sr := range r.AllResults {
		b := make(map[string]string, len(sr.Bindings))
		for k, v := range sr.Bindings {
			b[string(k)] = v
		}
		resp.AllResults = append(resp.AllResults, ScoredResultJSON{Bindings: b, Score: sr.Score, Method: string(sr.Method), Steps: sr.Steps, Depth: sr.Depth})
	}
	return resp
}

func (e *Engine) handleExecute(ctx context.Context, req *mcp.CallToolRequest, input ExecuteRequest) (*mcp.CallToolResult, *ExecuteResponse, error) {
	result := e.sess.Execute(types.Identifier(input.Statement.Operator), toArgTerms(input.Statement.Args), input.MaxResults)
	resp := toExecuteResponse(result)
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

// DirectMatchRequest is the direct-match tool's input: a fully-known
// statement with no holes.
type DirectMatchRequest struct {
	Statement StatementInput `json:"statement"`
}

func (e *Engine) handleDirectMatch(ctx context.Context, req *mcp.CallToolRequest, input DirectMatchRequest) (*mcp.CallToolResult, *ExecuteResponse, error) {
	result := e.sess.Execute(types.Identifier(input.Statement.Operator), toArgTerms(input.Statement.Args), 0)
	resp := toExecuteResponse(result)
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

// AssertFactRequest is the assert-fact tool's input.
type AssertFactRequest struct {
	Statement StatementInput `json:"statement"`
	Name      string         `json:"name,omitempty"`
}

// AssertFactResponse reports the outcome of assert-fact.
type AssertFactResponse struct {
	Success bool   `json:"success"`
	FactID  string `json:"fact_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (e *Engine) handleAssertFact(ctx context.Context, req *mcp.CallToolRequest, input AssertFactRequest) (*mcp.CallToolResult, *AssertFactResponse, error) {
	stmt := types.Statement{Operator: types.Identifier(input.Statement.Operator), Args: toArgTerms(input.Statement.Args)}
	fact, err := e.sess.AssertFact(stmt, types.Identifier(input.Name))
	if err != nil {
		resp := &AssertFactResponse{Success: false, Reason: err.Error()}
		return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
	}
	resp := &AssertFactResponse{Success: true, FactID: fact.ID}
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

// PushTheoryRequest is the push-theory tool's input.
type PushTheoryRequest struct {
	Priority           int                `json:"priority,omitempty"`
	DimensionOverrides map[string]float64 `json:"dimension_overrides,omitempty"`
}

// PushTheoryResponse reports the newly pushed layer's ID.
type PushTheoryResponse struct {
	LayerID string `json:"layer_id"`
	Depth   int    `json:"depth"`
}

func (e *Engine) handlePushTheory(ctx context.Context, req *mcp.CallToolRequest, input PushTheoryRequest) (*mcp.CallToolResult, *PushTheoryResponse, error) {
	id := e.sess.Theory.Push(input.Priority, input.DimensionOverrides)
	resp := &PushTheoryResponse{LayerID: id, Depth: e.sess.Theory.Depth()}
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

// TheoryOpResponse reports the outcome of pop-theory/commit-theory.
type TheoryOpResponse struct {
	Success bool   `json:"success"`
	Depth   int    `json:"depth"`
	Reason  string `json:"reason,omitempty"`
}

func (e *Engine) handlePopTheory(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, *TheoryOpResponse, error) {
	err := e.sess.Theory.Pop()
	resp := &TheoryOpResponse{Success: err == nil, Depth: e.sess.Theory.Depth()}
	if err != nil {
		resp.Reason = err.Error()
	}
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

func (e *Engine) handleCommitTheory(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, *TheoryOpResponse, error) {
	err := e.sess.Theory.Commit()
	resp := &TheoryOpResponse{Success: err == nil, Depth: e.sess.Theory.Depth()}
	if err != nil {
		resp.Reason = err.Error()
	}
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

func (e *Engine) handleGetStats(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, *stats.Snapshot, error) {
	snap := e.sess.StatsSnapshot()
	return &mcp.CallToolResult{Content: toJSONContent(snap)}, &snap, nil
}

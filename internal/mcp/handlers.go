package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tddocs/internal/docs"
	"github.com/hpungsan/tddocs/internal/errors"
	"github.com/hpungsan/tddocs/internal/format"
	"github.com/hpungsan/tddocs/internal/manager"
	"github.com/hpungsan/tddocs/internal/workflow"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	mgr      *manager.Manager
	patterns *workflow.Table
}

// NewHandlers creates a new Handlers instance. A nil patterns table yields
// no workflow suggestions.
func NewHandlers(mgr *manager.Manager, patterns *workflow.Table) *Handlers {
	return &Handlers{mgr: mgr, patterns: patterns}
}

// Request types for each tool

// GetOperatorRequest represents the arguments for get_operator.
// Unset show_* flags default to true.
type GetOperatorRequest struct {
	Name           string `json:"name"`
	ShowExamples   *bool  `json:"show_examples,omitempty"`
	ShowTips       *bool  `json:"show_tips,omitempty"`
	ShowParameters *bool  `json:"show_parameters,omitempty"`
}

// SearchRequest represents the arguments for the search tools.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// ListRequest represents the arguments for the list tools.
type ListRequest struct {
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// SuggestWorkflowRequest represents the arguments for suggest_workflow.
type SuggestWorkflowRequest struct {
	CurrentOperator string `json:"current_operator"`
}

// GetTutorialRequest represents the arguments for get_tutorial.
type GetTutorialRequest struct {
	Name           string `json:"name"`
	IncludeContent bool   `json:"include_content,omitempty"`
}

// GetPythonAPIRequest represents the arguments for get_python_api.
type GetPythonAPIRequest struct {
	ClassName     string `json:"class_name"`
	ShowMembers   *bool  `json:"show_members,omitempty"`
	ShowMethods   *bool  `json:"show_methods,omitempty"`
	ShowInherited bool   `json:"show_inherited,omitempty"`
}

// HandleGetOperator handles the get_operator tool call.
func (h *Handlers) HandleGetOperator(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetOperatorRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	e, err := h.mgr.GetOperator(input.Name, docs.OperatorOptions{
		ShowExamples:   orTrue(input.ShowExamples),
		ShowTips:       orTrue(input.ShowTips),
		ShowParameters: orTrue(input.ShowParameters),
	})
	if errors.Is(err, errors.ErrNotFound) {
		return textResult(format.NotFound("Operator", input.Name, "Try search_operators to find similar operators.")), nil
	}
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(format.Operator(e)), nil
}

// HandleSearchOperators handles the search_operators tool call.
func (h *Handlers) HandleSearchOperators(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	results, err := h.mgr.SearchOperators(input.Query, searchLimit(input.Limit))
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(format.OperatorSearch(input.Query, results)), nil
}

// HandleListOperators handles the list_operators tool call.
func (h *Handlers) HandleListOperators(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	list, err := h.mgr.ListOperators(manager.ListOptions{Category: input.Category, Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(format.OperatorList(list)), nil
}

// HandleSuggestWorkflow handles the suggest_workflow tool call.
func (h *Handlers) HandleSuggestWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SuggestWorkflowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	ws, err := h.mgr.SuggestWorkflow(input.CurrentOperator, h.patterns)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(format.Workflow(ws)), nil
}

// HandleGetTutorial handles the get_tutorial tool call.
func (h *Handlers) HandleGetTutorial(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetTutorialRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	t, err := h.mgr.GetTutorial(input.Name, manager.TutorialOptions{IncludeContent: input.IncludeContent})
	if errors.Is(err, errors.ErrNotFound) {
		return textResult(format.NotFound("Tutorial", input.Name, "Use list_tutorials to see what is available.")), nil
	}
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(format.Tutorial(t)), nil
}

// HandleListTutorials handles the list_tutorials tool call.
func (h *Handlers) HandleListTutorials(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	list, err := h.mgr.ListTutorials(manager.ListOptions{Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(format.TutorialList(list)), nil
}

// HandleSearchTutorials handles the search_tutorials tool call.
func (h *Handlers) HandleSearchTutorials(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	results, err := h.mgr.SearchTutorials(input.Query, searchLimit(input.Limit))
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(format.TutorialSearch(input.Query, results)), nil
}

// HandleGetPythonAPI handles the get_python_api tool call.
func (h *Handlers) HandleGetPythonAPI(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetPythonAPIRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	view, err := h.mgr.GetPythonClass(input.ClassName, manager.PythonOptions{
		ShowMembers:   orTrue(input.ShowMembers),
		ShowMethods:   orTrue(input.ShowMethods),
		ShowInherited: input.ShowInherited,
	})
	if errors.Is(err, errors.ErrNotFound) {
		return textResult(format.NotFound("Python class", input.ClassName, "Try search_python_api to find similar classes.")), nil
	}
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(format.PythonClass(view)), nil
}

// HandleSearchPythonAPI handles the search_python_api tool call.
func (h *Handlers) HandleSearchPythonAPI(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	results, err := h.mgr.SearchPythonAPI(input.Query, searchLimit(input.Limit))
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(format.PythonSearch(input.Query, results)), nil
}

// HandleGetSystemStats handles the get_system_stats tool call.
func (h *Handlers) HandleGetSystemStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.mgr.Stats()
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(format.Stats(st)), nil
}

func orTrue(b *bool) bool {
	return b == nil || *b
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var docsErr *errors.DocsError
	if stderrors.As(err, &docsErr) {
		errorObj := map[string]any{
			"code":    docsErr.Code,
			"message": err.Error(),
			"status":  docsErr.Status,
		}
		if docsErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if docsErr.Details != nil {
			errorObj["details"] = docsErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// textResult wraps rendered markdown in a single text block.
func textResult(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

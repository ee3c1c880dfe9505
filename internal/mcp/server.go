package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/tddocs/internal/config"
	"github.com/hpungsan/tddocs/internal/manager"
	"github.com/hpungsan/tddocs/internal/workflow"
)

const instructions = `TouchDesigner documentation server.

Look up operators with get_operator, browse families with list_operators and
find candidates with search_operators. suggest_workflow proposes the operators
that usually follow the one you are working with. Tutorials and the Python API
have their own get, list and search tools. get_system_stats reports what is
loaded.`

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"get_operator": {
		def:     getOperatorToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetOperator },
	},
	"search_operators": {
		def:     searchOperatorsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearchOperators },
	},
	"list_operators": {
		def:     listOperatorsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListOperators },
	},
	"suggest_workflow": {
		def:     suggestWorkflowToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSuggestWorkflow },
	},
	"get_tutorial": {
		def:     getTutorialToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetTutorial },
	},
	"list_tutorials": {
		def:     listTutorialsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListTutorials },
	},
	"search_tutorials": {
		def:     searchTutorialsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearchTutorials },
	},
	"get_python_api": {
		def:     getPythonAPIToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetPythonAPI },
	},
	"search_python_api": {
		def:     searchPythonAPIToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearchPythonAPI },
	},
	"get_system_stats": {
		def:     getSystemStatsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetSystemStats },
	},
}

// AllToolNames returns the sorted list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the documentation tools
// registered. Tools listed in cfg.DisabledTools are excluded.
func NewServer(mgr *manager.Manager, patterns *workflow.Table, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"tddocs",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	h := NewHandlers(mgr, patterns)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(mgr *manager.Manager, patterns *workflow.Table, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(mgr, patterns, cfg, version))
}

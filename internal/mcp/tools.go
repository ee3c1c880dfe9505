package mcp

import "github.com/mark3labs/mcp-go/mcp"

const maxSearchLimit = 50

var getOperatorToolDef = mcp.NewTool("get_operator",
	mcp.WithDescription("Get documentation for a TouchDesigner operator by name, display name or alias."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Operator name, e.g. noiseTOP or \"Noise TOP\""),
	),
	mcp.WithBoolean("show_examples",
		mcp.Description("Include usage examples (default: true)"),
	),
	mcp.WithBoolean("show_tips",
		mcp.Description("Include tips (default: true)"),
	),
	mcp.WithBoolean("show_parameters",
		mcp.Description("Include the parameter table (default: true)"),
	),
)

var searchOperatorsToolDef = mcp.NewTool("search_operators",
	mcp.WithDescription("Search operators by substring of name, category, summary or parameters."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Search terms"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Max results (default: all matches, max: 50)"),
	),
)

var listOperatorsToolDef = mcp.NewTool("list_operators",
	mcp.WithDescription("List operators, optionally restricted to one family (TOP, CHOP, SOP, DAT, MAT, COMP, POP)."),
	mcp.WithString("category",
		mcp.Description("Operator family, case-insensitive"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Max operators to list (default: all)"),
	),
)

var suggestWorkflowToolDef = mcp.NewTool("suggest_workflow",
	mcp.WithDescription("Suggest operators that commonly follow the given operator in a network."),
	mcp.WithString("current_operator",
		mcp.Required(),
		mcp.Description("The operator you are working with"),
	),
)

var getTutorialToolDef = mcp.NewTool("get_tutorial",
	mcp.WithDescription("Get a TouchDesigner tutorial by name or title."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Tutorial name or title"),
	),
	mcp.WithBoolean("include_content",
		mcp.Description("Include the full tutorial text (default: false)"),
	),
)

var listTutorialsToolDef = mcp.NewTool("list_tutorials",
	mcp.WithDescription("List available TouchDesigner tutorials."),
	mcp.WithNumber("limit",
		mcp.Description("Max tutorials to list (default: all)"),
	),
)

var searchTutorialsToolDef = mcp.NewTool("search_tutorials",
	mcp.WithDescription("Search tutorials by title, summary, tags or section headings."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Search terms"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Max results (default: all matches, max: 50)"),
	),
)

var getPythonAPIToolDef = mcp.NewTool("get_python_api",
	mcp.WithDescription("Get documentation for a TouchDesigner Python class."),
	mcp.WithString("class_name",
		mcp.Required(),
		mcp.Description("Class name, e.g. TOP or Par"),
	),
	mcp.WithBoolean("show_members",
		mcp.Description("Include members (default: true)"),
	),
	mcp.WithBoolean("show_methods",
		mcp.Description("Include methods (default: true)"),
	),
	mcp.WithBoolean("show_inherited",
		mcp.Description("Include members and methods inherited through the parent chain (default: false)"),
	),
)

var searchPythonAPIToolDef = mcp.NewTool("search_python_api",
	mcp.WithDescription("Search the TouchDesigner Python API by class, member or method name."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Search terms"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Max results (default: all matches, max: 50)"),
	),
)

var getSystemStatsToolDef = mcp.NewTool("get_system_stats",
	mcp.WithDescription("Report corpus sizes, operator categories and search index statistics."),
)

// searchLimit caps an explicit search limit. An omitted limit (<= 0) means
// every match.
func searchLimit(n int) int {
	switch {
	case n <= 0:
		return 0
	case n > maxSearchLimit:
		return maxSearchLimit
	}
	return n
}

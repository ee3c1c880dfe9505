// Package format renders query results as markdown text for tool responses
// and the web browser.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hpungsan/tddocs/internal/docs"
	"github.com/hpungsan/tddocs/internal/manager"
)

// Operator renders one operator. The text starts with "# <display name>".
func Operator(e *docs.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", e.Label())
	if e.Category != "" {
		fmt.Fprintf(&b, "**Category:** %s\n", e.Category)
	}
	if e.Name != e.Label() {
		fmt.Fprintf(&b, "**Name:** `%s`\n", e.Name)
	}
	if len(e.Aliases) > 0 {
		fmt.Fprintf(&b, "**Also known as:** %s\n", strings.Join(e.Aliases, ", "))
	}

	if e.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", e.Description)
	} else if e.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", e.Summary)
	}

	if len(e.Parameters) > 0 {
		b.WriteString("\n## Parameters\n\n")
		for _, p := range e.Parameters {
			fmt.Fprintf(&b, "- **%s**", p.Name)
			if p.Label != "" && p.Label != p.Name {
				fmt.Fprintf(&b, " (%s)", p.Label)
			}
			if p.Description != "" {
				fmt.Fprintf(&b, ": %s", p.Description)
			}
			if p.Default != "" {
				fmt.Fprintf(&b, " Default: `%s`", p.Default)
			}
			b.WriteString("\n")
		}
	}

	if len(e.Examples) > 0 {
		b.WriteString("\n## Examples\n")
		for _, ex := range e.Examples {
			fmt.Fprintf(&b, "\n```python\n%s\n```\n", ex)
		}
	}

	if len(e.Tips) > 0 {
		b.WriteString("\n## Tips\n\n")
		for _, tip := range e.Tips {
			fmt.Fprintf(&b, "- %s\n", tip)
		}
	}
	return b.String()
}

// OperatorSearch renders operator search results.
func OperatorSearch(query string, results []*docs.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Search Results for \"%s\"\n\n", query)
	if len(results) == 0 {
		fmt.Fprintf(&b, "No operators found matching \"%s\".\n", query)
		return b.String()
	}
	fmt.Fprintf(&b, "Found %d %s:\n\n", len(results), plural(len(results), "operator", "operators"))
	for _, e := range results {
		operatorLine(&b, e)
	}
	return b.String()
}

// OperatorList renders a listing, grouped by category when unfiltered.
func OperatorList(list *manager.OperatorList) string {
	var b strings.Builder
	b.WriteString("# TouchDesigner Operators\n\n")

	if list.Category != "" {
		if list.Total == 0 {
			fmt.Fprintf(&b, "No operators found in **%s** category.\n", list.Category)
			return b.String()
		}
		fmt.Fprintf(&b, "Showing %d of %d operators in **%s** category:\n\n",
			len(list.Operators), list.Total, list.Category)
		for _, e := range list.Operators {
			operatorLine(&b, e)
		}
		return b.String()
	}

	if list.Total == 0 {
		b.WriteString("No operators loaded.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Showing %d of %d operators.\n", len(list.Operators), list.Total)

	groups := map[string][]*docs.Entry{}
	var order []string
	for _, e := range list.Operators {
		cat := e.Category
		if cat == "" {
			cat = "Other"
		}
		if _, ok := groups[cat]; !ok {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], e)
	}
	sort.Strings(order)
	for _, cat := range order {
		fmt.Fprintf(&b, "\n## %s\n\n", cat)
		for _, e := range groups[cat] {
			operatorLine(&b, e)
		}
	}
	return b.String()
}

func operatorLine(b *strings.Builder, e *docs.Entry) {
	fmt.Fprintf(b, "- **%s** (`%s`", e.Label(), e.Name)
	if e.Category != "" {
		fmt.Fprintf(b, ", %s", e.Category)
	}
	b.WriteString(")")
	if e.Summary != "" {
		fmt.Fprintf(b, ": %s", e.Summary)
	}
	b.WriteString("\n")
}

// Tutorial renders one tutorial. The text starts with "# <display name>".
func Tutorial(t *docs.Tutorial) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Label())
	if t.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", t.Summary)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(t.Tags, ", "))
	}
	if len(t.Sections) > 0 {
		b.WriteString("## Sections\n\n")
		for _, s := range t.Sections {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	if t.Content != "" {
		b.WriteString("## Content\n\n")
		b.WriteString(strings.TrimSpace(t.Content))
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "_Use include_content to read the full tutorial (`%s`)._\n", t.Name)
	}
	return b.String()
}

// TutorialList renders the tutorial listing.
func TutorialList(list *manager.TutorialList) string {
	var b strings.Builder
	b.WriteString("# Available TouchDesigner Tutorials\n\n")
	if list.Total == 0 {
		b.WriteString("No tutorials loaded.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Showing %d of %d tutorials:\n\n", len(list.Tutorials), list.Total)
	for _, t := range list.Tutorials {
		tutorialLine(&b, t)
	}
	return b.String()
}

// TutorialSearch renders tutorial search results.
func TutorialSearch(query string, results []*docs.Tutorial) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Tutorial Search Results for \"%s\"\n\n", query)
	if len(results) == 0 {
		fmt.Fprintf(&b, "No tutorials found matching \"%s\".\n", query)
		return b.String()
	}
	fmt.Fprintf(&b, "Found %d %s:\n\n", len(results), plural(len(results), "tutorial", "tutorials"))
	for _, t := range results {
		tutorialLine(&b, t)
	}
	return b.String()
}

func tutorialLine(b *strings.Builder, t *docs.Tutorial) {
	fmt.Fprintf(b, "- **%s** (`%s`)", t.Label(), t.Name)
	if t.Summary != "" {
		fmt.Fprintf(b, ": %s", t.Summary)
	}
	b.WriteString("\n")
}

// PythonClass renders a Python class view. The text starts with
// "# <display name>".
func PythonClass(v *manager.PythonClassView) string {
	c := v.Class
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Label())
	if c.Parent != "" {
		fmt.Fprintf(&b, "**Inherits from:** `%s`\n\n", c.Parent)
	}
	if c.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", c.Description)
	}
	writeMembers(&b, "## Members", c.Members)
	writeMethods(&b, "## Methods", c.Methods)

	for _, g := range v.Inherited {
		writeMembers(&b, fmt.Sprintf("## Members inherited from %s", g.From), g.Members)
		writeMethods(&b, fmt.Sprintf("## Methods inherited from %s", g.From), g.Methods)
	}
	if v.Truncated {
		b.WriteString("_The parent chain loops back on itself; inherited listing stops at the repeat._\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeMembers(b *strings.Builder, heading string, members []docs.Member) {
	if len(members) == 0 {
		return
	}
	fmt.Fprintf(b, "%s\n\n", heading)
	for _, m := range members {
		fmt.Fprintf(b, "- `%s`", m.Name)
		if m.Type != "" {
			fmt.Fprintf(b, " (%s)", m.Type)
		}
		if m.Description != "" {
			fmt.Fprintf(b, ": %s", m.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeMethods(b *strings.Builder, heading string, methods []docs.Method) {
	if len(methods) == 0 {
		return
	}
	fmt.Fprintf(b, "%s\n\n", heading)
	for _, m := range methods {
		fmt.Fprintf(b, "- `%s`", m.Signature)
		if m.Description != "" {
			fmt.Fprintf(b, ": %s", m.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// PythonSearch renders Python API search results.
func PythonSearch(query string, results []*docs.PythonClass) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Python API Search Results for \"%s\"\n\n", query)
	if len(results) == 0 {
		fmt.Fprintf(&b, "No Python classes found matching \"%s\".\n", query)
		return b.String()
	}
	fmt.Fprintf(&b, "Found %d %s:\n\n", len(results), plural(len(results), "class", "classes"))
	for _, c := range results {
		fmt.Fprintf(&b, "- **%s**", c.Label())
		if c.Parent != "" {
			fmt.Fprintf(&b, " (extends `%s`)", c.Parent)
		}
		if c.Description != "" {
			fmt.Fprintf(&b, ": %s", firstLine(c.Description))
		}
		fmt.Fprintf(&b, " [%d members, %d methods]\n", len(c.Members), len(c.Methods))
	}
	return b.String()
}

// Workflow renders workflow suggestions, or the no-suggestions message.
func Workflow(ws *manager.WorkflowSuggestions) string {
	if len(ws.Suggestions) == 0 {
		return fmt.Sprintf("No workflow suggestions found for \"%s\".\n", ws.Query)
	}
	label := ws.Query
	if ws.Operator != nil {
		label = ws.Operator.Label()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Workflow Suggestions for %s\n\n", label)
	for i, s := range ws.Suggestions {
		fmt.Fprintf(&b, "%d. **%s**", i+1, s.Operator)
		if s.Weight != 0 {
			fmt.Fprintf(&b, " (weight %.2f)", s.Weight)
		}
		if s.Rationale != "" {
			fmt.Fprintf(&b, ": %s", s.Rationale)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Stats renders system statistics.
func Stats(st *manager.Stats) string {
	var b strings.Builder
	b.WriteString("# TouchDesigner Documentation Statistics\n\n")
	fmt.Fprintf(&b, "- **State:** %s\n", st.State)
	fmt.Fprintf(&b, "- **Loaded from:** %s\n", st.Source)
	fmt.Fprintf(&b, "- **Operators:** %d\n", st.Operators)
	fmt.Fprintf(&b, "- **Tutorials:** %d\n", st.Tutorials)
	fmt.Fprintf(&b, "- **Python classes:** %d\n", st.PythonClasses)
	fmt.Fprintf(&b, "- **Indexed entries:** %d\n", st.SearchStats.TotalEntries)
	fmt.Fprintf(&b, "- **Indexed tokens:** %d\n", st.SearchStats.TotalTokens)
	if st.SearchStats.BuildID != "" {
		fmt.Fprintf(&b, "- **Index build:** %s\n", st.SearchStats.BuildID)
	}

	if len(st.Categories) > 0 {
		cats := make([]string, 0, len(st.Categories))
		for c := range st.Categories {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		b.WriteString("\n## Operators by Category\n\n")
		for _, c := range cats {
			fmt.Fprintf(&b, "- %s: %d\n", c, st.Categories[c])
		}
	}
	return b.String()
}

// NotFound renders a lookup miss with a hint at the matching search tool.
func NotFound(kind, name, hint string) string {
	msg := fmt.Sprintf("%s \"%s\" not found.", kind, name)
	if hint != "" {
		msg += " " + hint
	}
	return msg + "\n"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

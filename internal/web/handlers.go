package web

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/hpungsan/tddocs/internal/docs"
	"github.com/hpungsan/tddocs/internal/format"
	"github.com/hpungsan/tddocs/internal/manager"
	"github.com/hpungsan/tddocs/internal/workflow"
)

const searchLimit = 25

// Handlers contains HTTP route handlers for the documentation browser.
type Handlers struct {
	mgr      *manager.Manager
	patterns *workflow.Table
	renderer *Renderer
}

// HandleOperators handles GET /operators, optionally filtered by ?category=.
func (h *Handlers) HandleOperators(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	list, err := h.mgr.ListOperators(manager.ListOptions{
		Category: category,
		Limit:    parseIntParam(r, "limit", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, list)
		return
	}

	var groups []LinkGroup
	byCat := map[string]int{}
	for _, e := range list.Operators {
		cat := e.Category
		if cat == "" {
			cat = "Other"
		}
		i, ok := byCat[cat]
		if !ok {
			i = len(groups)
			byCat[cat] = i
			groups = append(groups, LinkGroup{Heading: cat})
		}
		groups[i].Items = append(groups[i].Items, operatorLink(e))
	}

	st, err := h.mgr.Stats()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	cats := make([]string, 0, len(st.Categories))
	for c := range st.Categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	h.renderer.renderPage(w, "list", ListPageData{
		PageData:   h.renderer.page("Operators", "operators"),
		Intro:      operatorIntro(list),
		Groups:     groups,
		Categories: cats,
		Category:   list.Category,
	})
}

// HandleOperator handles GET /operators/{name}. Workflow suggestions are
// appended below the operator reference.
func (h *Handlers) HandleOperator(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	e, err := h.mgr.GetOperator(name, docs.AllOperatorSections)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, e)
		return
	}

	md := format.Operator(e)
	if ws, err := h.mgr.SuggestWorkflow(e.Name, h.patterns); err == nil && len(ws.Suggestions) > 0 {
		md += "\n" + demote(format.Workflow(ws))
	}
	h.renderer.renderDoc(w, e.Label(), "operators", md)
}

// HandleTutorials handles GET /tutorials.
func (h *Handlers) HandleTutorials(w http.ResponseWriter, r *http.Request) {
	list, err := h.mgr.ListTutorials(manager.ListOptions{Limit: parseIntParam(r, "limit", 0)})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, list)
		return
	}

	group := LinkGroup{Heading: "Tutorials"}
	for _, t := range list.Tutorials {
		group.Items = append(group.Items, tutorialLink(t))
	}
	h.renderer.renderPage(w, "list", ListPageData{
		PageData: h.renderer.page("Tutorials", "tutorials"),
		Intro:    strconv.Itoa(list.Total) + " tutorials available.",
		Groups:   []LinkGroup{group},
	})
}

// HandleTutorial handles GET /tutorials/{name}. Content is shown unless
// ?content=false.
func (h *Handlers) HandleTutorial(w http.ResponseWriter, r *http.Request) {
	includeContent := r.URL.Query().Get("content") != "false"
	t, err := h.mgr.GetTutorial(r.PathValue("name"), manager.TutorialOptions{IncludeContent: includeContent})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, t)
		return
	}
	h.renderer.renderDoc(w, t.Label(), "tutorials", format.Tutorial(t))
}

// HandlePythonClass handles GET /python/{name}. Inherited members are shown
// unless ?inherited=false.
func (h *Handlers) HandlePythonClass(w http.ResponseWriter, r *http.Request) {
	view, err := h.mgr.GetPythonClass(r.PathValue("name"), manager.PythonOptions{
		ShowMembers:   true,
		ShowMethods:   true,
		ShowInherited: r.URL.Query().Get("inherited") != "false",
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, view)
		return
	}
	h.renderer.renderDoc(w, view.Class.Label(), "python", format.PythonClass(view))
}

// HandleSearch handles GET /search?q=&kind=. kind is one of operator,
// tutorial or python_class; empty searches all three.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	kind := r.URL.Query().Get("kind")
	limit := parseIntParam(r, "limit", searchLimit)

	data := SearchPageData{
		PageData: h.renderer.page("Search", "search"),
		Query:    query,
		Kind:     kind,
		HasQuery: query != "",
	}
	if query == "" {
		h.renderer.renderPage(w, "search", data)
		return
	}

	if kind == "" || kind == string(docs.KindOperator) {
		results, err := h.mgr.SearchOperators(query, limit)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		g := LinkGroup{Heading: "Operators"}
		for _, e := range results {
			g.Items = append(g.Items, operatorLink(e))
		}
		data.Groups = append(data.Groups, g)
	}
	if kind == "" || kind == string(docs.KindTutorial) {
		results, err := h.mgr.SearchTutorials(query, limit)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		g := LinkGroup{Heading: "Tutorials"}
		for _, t := range results {
			g.Items = append(g.Items, tutorialLink(t))
		}
		data.Groups = append(data.Groups, g)
	}
	if kind == "" || kind == string(docs.KindPythonClass) {
		results, err := h.mgr.SearchPythonAPI(query, limit)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		g := LinkGroup{Heading: "Python API"}
		for _, p := range results {
			g.Items = append(g.Items, LinkItem{
				Href:    "/python/" + url.PathEscape(p.Name),
				Label:   p.Label(),
				Name:    p.Name,
				Summary: p.Description,
			})
		}
		data.Groups = append(data.Groups, g)
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, data.Groups)
		return
	}
	h.renderer.renderPage(w, "search", data)
}

// HandleStats handles GET /stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.mgr.Stats()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, st)
		return
	}
	h.renderer.renderDoc(w, "Statistics", "stats", format.Stats(st))
}

func operatorLink(e *docs.Entry) LinkItem {
	return LinkItem{
		Href:    "/operators/" + url.PathEscape(e.Name),
		Label:   e.Label(),
		Name:    e.Name,
		Summary: e.Summary,
	}
}

func tutorialLink(t *docs.Tutorial) LinkItem {
	return LinkItem{
		Href:    "/tutorials/" + url.PathEscape(t.Name),
		Label:   t.Label(),
		Name:    t.Name,
		Summary: t.Summary,
	}
}

func operatorIntro(list *manager.OperatorList) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(list.Total))
	b.WriteString(" operators")
	if list.Category != "" {
		b.WriteString(" in ")
		b.WriteString(list.Category)
	}
	b.WriteString(".")
	return b.String()
}

// demote shifts every markdown heading one level down so an appended
// report nests under the page title.
func demote(md string) string {
	lines := strings.Split(md, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "#") {
			lines[i] = "#" + l
		}
	}
	return strings.Join(lines, "\n")
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

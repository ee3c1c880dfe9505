package manager

import (
	"strings"
	"time"

	"github.com/hpungsan/tddocs/internal/docs"
	"github.com/hpungsan/tddocs/internal/errors"
	"github.com/hpungsan/tddocs/internal/index"
	"github.com/hpungsan/tddocs/internal/workflow"
)

// ListOptions filters and caps a listing. Limit <= 0 returns everything.
type ListOptions struct {
	Category string
	Limit    int
}

// OperatorList is the result of ListOperators.
type OperatorList struct {
	Operators []*docs.Entry
	// Category is the upper-cased filter, empty when unfiltered.
	Category string
	// Total counts matches before Limit was applied.
	Total int
}

// TutorialList is the result of ListTutorials.
type TutorialList struct {
	Tutorials []*docs.Tutorial
	Total     int
}

// TutorialOptions controls the tutorial projection.
type TutorialOptions struct {
	IncludeContent bool
}

// PythonOptions controls the Python class projection.
type PythonOptions struct {
	ShowMembers   bool
	ShowMethods   bool
	ShowInherited bool
}

// PythonClassView is a projected Python class with its inherited API.
type PythonClassView struct {
	Class     *docs.PythonClass
	Inherited []docs.InheritedGroup
	// Truncated is set when the parent chain contained a cycle.
	Truncated bool
}

// WorkflowSuggestions is the result of SuggestWorkflow.
type WorkflowSuggestions struct {
	// Query is the operator name as given.
	Query string
	// Operator is the resolved operator, nil when unknown.
	Operator    *docs.Entry
	Suggestions []workflow.Suggestion
}

// Stats summarizes the loaded state.
type Stats struct {
	State         string         `json:"state"`
	Operators     int            `json:"operators"`
	Tutorials     int            `json:"tutorials"`
	PythonClasses int            `json:"pythonClasses"`
	Categories    map[string]int `json:"categories"`
	SearchStats   index.Stats    `json:"searchStats"`
	Source        Source         `json:"source"`
	Fingerprint   string         `json:"fingerprint,omitempty"`
	LoadedAt      time.Time      `json:"loadedAt"`
}

// GetOperator resolves name and returns the projected operator.
func (m *Manager) GetOperator(name string, opts docs.OperatorOptions) (*docs.Entry, error) {
	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.NewInvalidRequest("operator name is required")
	}
	e, ok := snap.corpus.Operators.Resolve(name)
	if !ok {
		return nil, errors.NewNotFound("operator", name)
	}
	return e.Project(opts), nil
}

// ListOperators returns operators in insertion order, optionally filtered
// by category. An unrecognized category filter matches nothing.
func (m *Manager) ListOperators(opts ListOptions) (*OperatorList, error) {
	snap, err := m.current()
	if err != nil {
		return nil, err
	}

	out := &OperatorList{Operators: []*docs.Entry{}}
	filter := strings.TrimSpace(opts.Category)
	if filter != "" {
		out.Category = strings.ToUpper(filter)
	}
	for _, e := range snap.corpus.Operators.All() {
		if filter != "" && !docs.MatchesCategory(e.Category, filter) {
			continue
		}
		out.Total++
		if opts.Limit <= 0 || len(out.Operators) < opts.Limit {
			out.Operators = append(out.Operators, e)
		}
	}
	return out, nil
}

// SearchOperators runs query against the operator corpus.
func (m *Manager) SearchOperators(query string, limit int) ([]*docs.Entry, error) {
	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	out := []*docs.Entry{}
	for _, match := range snap.index.Search(query, index.SearchOptions{Kind: docs.KindOperator, Limit: limit}) {
		if e, ok := snap.corpus.Operators.Get(match.Name); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetTutorial resolves a tutorial by name or display name.
func (m *Manager) GetTutorial(name string, opts TutorialOptions) (*docs.Tutorial, error) {
	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.NewInvalidRequest("tutorial name is required")
	}
	t, ok := snap.corpus.Tutorials.Resolve(name)
	if !ok {
		return nil, errors.NewNotFound("tutorial", name)
	}
	return t.Project(opts.IncludeContent), nil
}

// ListTutorials returns tutorials in insertion order without content.
func (m *Manager) ListTutorials(opts ListOptions) (*TutorialList, error) {
	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	all := snap.corpus.Tutorials.All()
	out := &TutorialList{Tutorials: make([]*docs.Tutorial, 0, len(all)), Total: len(all)}
	for _, t := range all {
		if opts.Limit > 0 && len(out.Tutorials) >= opts.Limit {
			break
		}
		out.Tutorials = append(out.Tutorials, t.Project(false))
	}
	return out, nil
}

// SearchTutorials runs query against the tutorial corpus.
func (m *Manager) SearchTutorials(query string, limit int) ([]*docs.Tutorial, error) {
	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	out := []*docs.Tutorial{}
	for _, match := range snap.index.Search(query, index.SearchOptions{Kind: docs.KindTutorial, Limit: limit}) {
		if t, ok := snap.corpus.Tutorials.Get(match.Name); ok {
			out = append(out, t.Project(false))
		}
	}
	return out, nil
}

// GetPythonClass resolves a Python class. Inherited members and methods are
// gathered by walking the parent chain when requested; a cycle truncates
// the walk.
func (m *Manager) GetPythonClass(name string, opts PythonOptions) (*PythonClassView, error) {
	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.NewInvalidRequest("class name is required")
	}
	cls, ok := snap.corpus.Classes.Resolve(name)
	if !ok {
		return nil, errors.NewNotFound("python class", name)
	}

	projected := *cls
	if !opts.ShowMembers {
		projected.Members = nil
	}
	if !opts.ShowMethods {
		projected.Methods = nil
	}
	view := &PythonClassView{Class: &projected}

	if opts.ShowInherited {
		groups, cyclic := snap.corpus.Inherited(cls)
		view.Truncated = cyclic
		if cyclic {
			m.logger.Warn("python class parent chain has a cycle", "class", cls.Name)
		}
		for _, g := range groups {
			if !opts.ShowMembers {
				g.Members = nil
			}
			if !opts.ShowMethods {
				g.Methods = nil
			}
			if len(g.Members) > 0 || len(g.Methods) > 0 {
				view.Inherited = append(view.Inherited, g)
			}
		}
	}
	return view, nil
}

// SearchPythonAPI runs query against the Python class corpus.
func (m *Manager) SearchPythonAPI(query string, limit int) ([]*docs.PythonClass, error) {
	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	out := []*docs.PythonClass{}
	for _, match := range snap.index.Search(query, index.SearchOptions{Kind: docs.KindPythonClass, Limit: limit}) {
		if p, ok := snap.corpus.Classes.Get(match.Name); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// SuggestWorkflow resolves name as an operator and looks its follow-ups up
// in patterns. An unknown operator or one without patterns yields no
// suggestions, not an error.
func (m *Manager) SuggestWorkflow(name string, patterns *workflow.Table) (*WorkflowSuggestions, error) {
	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	out := &WorkflowSuggestions{Query: name, Suggestions: []workflow.Suggestion{}}
	e, ok := snap.corpus.Operators.Resolve(name)
	if !ok {
		return out, nil
	}
	out.Operator = e
	out.Suggestions = patterns.Suggest(e.Name, e.DisplayName, name)
	return out, nil
}

// Stats reports record counts and index size for the live snapshot.
func (m *Manager) Stats() (*Stats, error) {
	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	st := &Stats{
		State:         m.State().String(),
		Operators:     snap.corpus.Operators.Len(),
		Tutorials:     snap.corpus.Tutorials.Len(),
		PythonClasses: snap.corpus.Classes.Len(),
		Categories:    map[string]int{},
		SearchStats:   snap.index.Stats(),
		Source:        snap.source,
		Fingerprint:   snap.fingerprint,
		LoadedAt:      snap.loadedAt,
	}
	for _, e := range snap.corpus.Operators.All() {
		if e.Category != "" {
			st.Categories[e.Category]++
		}
	}
	return st, nil
}

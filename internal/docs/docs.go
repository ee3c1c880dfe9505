// Package docs defines the canonical documentation records (operators,
// tutorials and Python API classes), the normalizer that produces them from
// raw loader output, and the Corpus that holds them.
package docs

// Kind identifies which corpus a record belongs to.
type Kind string

const (
	KindOperator    Kind = "operator"
	KindTutorial    Kind = "tutorial"
	KindPythonClass Kind = "python_class"
)

// Header holds the fields shared by every record variant.
type Header struct {
	// Name is the canonical, case-sensitive key within its corpus.
	// For Python classes this is the class name.
	Name string `json:"name"`

	// DisplayName is the human-readable form. Defaults to Name.
	DisplayName string `json:"display_name"`

	// Category is the normalized category (operators only; empty otherwise).
	Category string `json:"category,omitempty"`
}

// Label returns DisplayName, falling back to Name.
func (h Header) Label() string {
	if h.DisplayName != "" {
		return h.DisplayName
	}
	return h.Name
}

// Parameter is one operator parameter, in page order.
type Parameter struct {
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Default     string `json:"default,omitempty"`
}

// Entry is a normalized operator reference record.
type Entry struct {
	Header
	Description string      `json:"description,omitempty"`
	Summary     string      `json:"summary,omitempty"`
	Examples    []string    `json:"examples,omitempty"`
	Tips        []string    `json:"tips,omitempty"`
	Parameters  []Parameter `json:"parameters,omitempty"`
	Aliases     []string    `json:"aliases,omitempty"`
	SourcePath  string      `json:"source_path,omitempty"`
}

// Tutorial is a normalized tutorial document.
type Tutorial struct {
	Header
	Summary    string   `json:"summary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Sections   []string `json:"sections,omitempty"`
	Content    string   `json:"content,omitempty"`
	SourcePath string   `json:"source_path,omitempty"`
}

// Member is a Python class attribute.
type Member struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Method is a Python class method.
type Method struct {
	Name        string `json:"name"`
	Signature   string `json:"signature"`
	Description string `json:"description,omitempty"`
}

// PythonClass is a normalized Python API class.
type PythonClass struct {
	Header
	Description string   `json:"description,omitempty"`
	// Parent is the name of the parent class. It is a lookup key into the
	// same corpus, not an ownership relation, and may dangle.
	Parent     string   `json:"parent,omitempty"`
	Members    []Member `json:"members,omitempty"`
	Methods    []Method `json:"methods,omitempty"`
	SourcePath string   `json:"source_path,omitempty"`
}

// Head returns the shared header.
func (e *Entry) Head() Header { return e.Header }

// Head returns the shared header.
func (t *Tutorial) Head() Header { return t.Header }

// Head returns the shared header.
func (p *PythonClass) Head() Header { return p.Header }

// AliasNames returns alternate lookup names for the operator.
func (e *Entry) AliasNames() []string { return e.Aliases }

// OperatorOptions selects which optional sections an operator projection keeps.
type OperatorOptions struct {
	ShowExamples   bool
	ShowTips       bool
	ShowParameters bool
}

// AllOperatorSections keeps everything.
var AllOperatorSections = OperatorOptions{ShowExamples: true, ShowTips: true, ShowParameters: true}

// Project returns a copy of e with the sections not selected by opts removed.
func (e *Entry) Project(opts OperatorOptions) *Entry {
	out := *e
	if !opts.ShowExamples {
		out.Examples = nil
	}
	if !opts.ShowTips {
		out.Tips = nil
	}
	if !opts.ShowParameters {
		out.Parameters = nil
	}
	return &out
}

// Project returns a copy of t, dropping the full content unless includeContent is set.
func (t *Tutorial) Project(includeContent bool) *Tutorial {
	out := *t
	if !includeContent {
		out.Content = ""
	}
	return &out
}

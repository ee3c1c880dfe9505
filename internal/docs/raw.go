package docs

// RawOperator is an operator record as produced by a source loader,
// before normalization. Any field may be empty.
type RawOperator struct {
	Source      string
	Name        string
	DisplayName string
	Category    string
	Description string
	Summary     string
	Examples    []string
	Tips        []string
	Parameters  []Parameter
	Aliases     []string
}

// RawTutorial is a tutorial record as produced by a source loader.
type RawTutorial struct {
	Source      string
	Name        string
	DisplayName string
	Summary     string
	Content     string
	Tags        []string
	Sections    []string
}

// RawPythonClass is a Python API class as produced by a source loader.
type RawPythonClass struct {
	Source      string
	ClassName   string
	DisplayName string
	Description string
	Parent      string
	Members     []Member
	Methods     []Method
}

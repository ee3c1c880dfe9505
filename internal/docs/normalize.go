package docs

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/hpungsan/tddocs/internal/errors"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Categories is the fixed operator category vocabulary.
var Categories = []string{"TOP", "CHOP", "SOP", "DAT", "COMP", "MAT", "POP"}

var knownCategories = func() map[string]bool {
	m := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

// Fold normalizes a string for case-insensitive comparison: NFKC, Unicode
// case folding, trim, and whitespace runs collapsed to single spaces.
func Fold(s string) string {
	s = cases.Fold().String(norm.NFKC.String(s))
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// CleanText trims s and collapses internal whitespace runs to single spaces.
func CleanText(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// NormalizeCategory maps a raw category onto the fixed vocabulary.
// Known categories are upper-cased; unknown ones are returned trimmed but
// otherwise verbatim, with known=false.
func NormalizeCategory(raw string) (category string, known bool) {
	trimmed := strings.TrimSpace(raw)
	upper := strings.ToUpper(trimmed)
	if knownCategories[upper] {
		return upper, true
	}
	return trimmed, false
}

// MatchesCategory reports whether a stored category satisfies a filter.
// Unknown categories never match, whatever the filter.
func MatchesCategory(category, filter string) bool {
	want, ok := NormalizeCategory(filter)
	if !ok {
		return false
	}
	return category == want
}

// NormalizeOperator converts a raw operator into an Entry.
// Returns ErrMalformedRecord when the name is missing.
func NormalizeOperator(raw RawOperator) (*Entry, error) {
	name := CleanText(raw.Name)
	if name == "" {
		return nil, errors.NewMalformedRecord(sourceOr(raw.Source), "operator name is required")
	}
	category, _ := NormalizeCategory(raw.Category)

	description := strings.TrimSpace(raw.Description)
	summary := CleanText(raw.Summary)
	if summary == "" {
		summary = firstSentence(description)
	}

	return &Entry{
		Header: Header{
			Name:        name,
			DisplayName: displayOr(raw.DisplayName, name),
			Category:    category,
		},
		Description: description,
		Summary:     summary,
		Examples:    compact(raw.Examples),
		Tips:        compactClean(raw.Tips),
		Parameters:  normalizeParameters(raw.Parameters),
		Aliases:     compactClean(raw.Aliases),
		SourcePath:  raw.Source,
	}, nil
}

// NormalizeTutorial converts a raw tutorial into a Tutorial.
func NormalizeTutorial(raw RawTutorial) (*Tutorial, error) {
	name := CleanText(raw.Name)
	if name == "" {
		return nil, errors.NewMalformedRecord(sourceOr(raw.Source), "tutorial name is required")
	}

	summary := CleanText(raw.Summary)
	if summary == "" {
		summary = firstSentence(raw.Content)
	}

	return &Tutorial{
		Header: Header{
			Name:        name,
			DisplayName: displayOr(raw.DisplayName, name),
		},
		Summary:    summary,
		Tags:       compactClean(raw.Tags),
		Sections:   compactClean(raw.Sections),
		Content:    raw.Content,
		SourcePath: raw.Source,
	}, nil
}

// NormalizePythonClass converts a raw Python class into a PythonClass.
func NormalizePythonClass(raw RawPythonClass) (*PythonClass, error) {
	name := strings.TrimSpace(raw.ClassName)
	if name == "" {
		return nil, errors.NewMalformedRecord(sourceOr(raw.Source), "class name is required")
	}

	members := make([]Member, 0, len(raw.Members))
	for _, m := range raw.Members {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		members = append(members, Member{
			Name:        strings.TrimSpace(m.Name),
			Type:        strings.TrimSpace(m.Type),
			Description: CleanText(m.Description),
		})
	}
	methods := make([]Method, 0, len(raw.Methods))
	for _, m := range raw.Methods {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		sig := strings.TrimSpace(m.Signature)
		if sig == "" {
			sig = strings.TrimSpace(m.Name) + "()"
		}
		methods = append(methods, Method{
			Name:        strings.TrimSpace(m.Name),
			Signature:   sig,
			Description: CleanText(m.Description),
		})
	}

	parent := strings.TrimSpace(raw.Parent)
	if parent == name || parent == "object" {
		parent = ""
	}

	return &PythonClass{
		Header: Header{
			Name:        name,
			DisplayName: displayOr(raw.DisplayName, name),
		},
		Description: strings.TrimSpace(raw.Description),
		Parent:      parent,
		Members:     nilIfEmpty(members),
		Methods:     nilIfEmpty(methods),
		SourcePath:  raw.Source,
	}, nil
}

func normalizeParameters(in []Parameter) []Parameter {
	out := make([]Parameter, 0, len(in))
	for _, p := range in {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = strings.TrimSpace(p.Label)
		}
		if name == "" {
			continue
		}
		out = append(out, Parameter{
			Name:        name,
			Label:       CleanText(p.Label),
			Description: CleanText(p.Description),
			Default:     strings.TrimSpace(p.Default),
		})
	}
	return nilIfEmpty(out)
}

func displayOr(display, name string) string {
	if d := CleanText(display); d != "" {
		return d
	}
	return name
}

func sourceOr(source string) string {
	if source == "" {
		return "(unknown source)"
	}
	return source
}

// firstSentence returns the first sentence of the first non-heading paragraph of text.
func firstSentence(text string) string {
	for _, para := range strings.Split(text, "\n\n") {
		para = CleanText(para)
		if para == "" || strings.HasPrefix(para, "#") || strings.HasPrefix(para, "```") {
			continue
		}
		if i := strings.Index(para, ". "); i > 0 {
			return para[:i+1]
		}
		return para
	}
	return ""
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimRight(s, " \t\n"))
		}
	}
	return nilIfEmpty(out)
}

func compactClean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = CleanText(s); s != "" {
			out = append(out, s)
		}
	}
	return nilIfEmpty(out)
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

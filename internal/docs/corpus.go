package docs

// Record is implemented by every record variant held in a Table.
type Record interface {
	Head() Header
}

// aliased is implemented by records that carry alternate lookup names.
type aliased interface {
	AliasNames() []string
}

// Table is an insertion-ordered, name-keyed collection of records.
// Names are unique and case-sensitive; lookups follow Resolve's rules.
type Table[T Record] struct {
	order     []string
	byName    map[string]T
	byFold    map[string]string // folded name -> name
	byDisplay map[string]string // folded display name -> name
	byAlias   map[string]string // folded alias -> name
}

// NewTable creates an empty Table.
func NewTable[T Record]() *Table[T] {
	return &Table[T]{
		byName:    make(map[string]T),
		byFold:    make(map[string]string),
		byDisplay: make(map[string]string),
		byAlias:   make(map[string]string),
	}
}

// Add inserts rec. If a record with the same name already exists the first
// one wins: rec is dropped, its display name (when different) becomes an alias
// of the existing record, and Add returns false.
func (t *Table[T]) Add(rec T) bool {
	h := rec.Head()
	if _, exists := t.byName[h.Name]; exists {
		if Fold(h.DisplayName) != Fold(t.byName[h.Name].Head().DisplayName) {
			t.AddAlias(h.Name, h.DisplayName)
		}
		return false
	}

	t.order = append(t.order, h.Name)
	t.byName[h.Name] = rec

	folded := Fold(h.Name)
	if _, taken := t.byFold[folded]; !taken {
		t.byFold[folded] = h.Name
	}
	if d := Fold(h.DisplayName); d != "" {
		if _, taken := t.byDisplay[d]; !taken {
			t.byDisplay[d] = h.Name
		}
	}
	if a, ok := any(rec).(aliased); ok {
		for _, alias := range a.AliasNames() {
			t.AddAlias(h.Name, alias)
		}
	}
	return true
}

// AddAlias registers alias as an alternate lookup key for name.
// Existing aliases are never overwritten.
func (t *Table[T]) AddAlias(name, alias string) {
	key := Fold(alias)
	if key == "" {
		return
	}
	if _, taken := t.byAlias[key]; !taken {
		t.byAlias[key] = name
	}
}

// Aliases returns a copy of the folded alias -> canonical name map.
func (t *Table[T]) Aliases() map[string]string {
	out := make(map[string]string, len(t.byAlias))
	for k, v := range t.byAlias {
		out[k] = v
	}
	return out
}

// Resolve looks a record up by exact name, then case-insensitive name, then
// case-insensitive display name, then alias.
func (t *Table[T]) Resolve(name string) (T, bool) {
	if rec, ok := t.byName[name]; ok {
		return rec, true
	}
	key := Fold(name)
	var zero T
	if key == "" {
		return zero, false
	}
	for _, idx := range []map[string]string{t.byFold, t.byDisplay, t.byAlias} {
		if canonical, ok := idx[key]; ok {
			return t.byName[canonical], true
		}
	}
	return zero, false
}

// Get returns the record with exactly this name.
func (t *Table[T]) Get(name string) (T, bool) {
	rec, ok := t.byName[name]
	return rec, ok
}

// All returns every record in insertion order.
func (t *Table[T]) All() []T {
	out := make([]T, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.byName[name])
	}
	return out
}

// Names returns every canonical name in insertion order.
func (t *Table[T]) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of records.
func (t *Table[T]) Len() int {
	return len(t.order)
}

// Corpus is the full set of normalized records across the three sources.
// It is built once and treated as immutable afterwards.
type Corpus struct {
	Operators *Table[*Entry]
	Tutorials *Table[*Tutorial]
	Classes   *Table[*PythonClass]
}

// NewCorpus creates an empty Corpus.
func NewCorpus() *Corpus {
	return &Corpus{
		Operators: NewTable[*Entry](),
		Tutorials: NewTable[*Tutorial](),
		Classes:   NewTable[*PythonClass](),
	}
}

// Total returns the number of records across all corpora.
func (c *Corpus) Total() int {
	return c.Operators.Len() + c.Tutorials.Len() + c.Classes.Len()
}

// InheritedGroup is the members and methods contributed by one ancestor class.
type InheritedGroup struct {
	From    string   `json:"from"`
	Members []Member `json:"members,omitempty"`
	Methods []Method `json:"methods,omitempty"`
}

// Inherited walks the parent chain of cls and returns each resolvable
// ancestor's members and methods, nearest first. Dangling parents end the
// walk. A cycle is detected with a visited set and truncates the chain;
// cyclic reports whether that happened.
func (c *Corpus) Inherited(cls *PythonClass) (groups []InheritedGroup, cyclic bool) {
	visited := map[string]bool{cls.Name: true}
	parent := cls.Parent
	for parent != "" {
		anc, ok := c.Classes.Resolve(parent)
		if !ok {
			break
		}
		if visited[anc.Name] {
			return groups, true
		}
		visited[anc.Name] = true
		if len(anc.Members) > 0 || len(anc.Methods) > 0 {
			groups = append(groups, InheritedGroup{
				From:    anc.Name,
				Members: anc.Members,
				Methods: anc.Methods,
			})
		}
		parent = anc.Parent
	}
	return groups, false
}

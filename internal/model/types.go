// Package model defines the entities shared by the extractor, the cache
// store, and the reference resolver.
package model

// Location identifies where an entity or reference occurs in a file.
// Line and Column are 0-based. Column and Length are optional; -1 means
// "not recorded".
type Location struct {
	FileID string
	Line   int
	Column int
	Length int
}

// NewLocation creates a Location with no column/length information.
func NewLocation(fileID string, line int) Location {
	return Location{FileID: fileID, Line: line, Column: -1, Length: -1}
}

// Factory is a named template definition indexed for navigation.
// A Factory owns its traits: adding a trait with an existing name
// replaces the previous one.
type Factory struct {
	Name       string
	Location   Location
	ParentName string
	traits     map[string]*Trait
}

// NewFactory creates a Factory with an empty trait set.
func NewFactory(name string, loc Location, parentName string) *Factory {
	return &Factory{
		Name:       name,
		Location:   loc,
		ParentName: parentName,
		traits:     make(map[string]*Trait),
	}
}

// AddTrait attaches a trait to this factory, replacing any existing
// trait with the same name (last write wins).
func (f *Factory) AddTrait(t *Trait) {
	if f.traits == nil {
		f.traits = make(map[string]*Trait)
	}
	f.traits[t.Name] = t
}

// Trait returns the named trait, or nil if the factory has none by
// that name.
func (f *Factory) Trait(name string) *Trait {
	return f.traits[name]
}

// TraitCount returns the number of traits this factory owns.
func (f *Factory) TraitCount() int {
	return len(f.traits)
}

// TraitNames returns the names of all owned traits in unspecified order.
func (f *Factory) TraitNames() []string {
	names := make([]string, 0, len(f.traits))
	for name := range f.traits {
		names = append(names, name)
	}
	return names
}

// Trait is a named modifier scoped to one factory. The relation back to
// the factory is name-based and resolved on demand; a Trait never holds
// a pointer to its Factory.
type Trait struct {
	Name        string
	Location    Location
	FactoryName string
}

// NewTrait creates a Trait attributed to the named factory.
func NewTrait(name string, loc Location, factoryName string) *Trait {
	return &Trait{Name: name, Location: loc, FactoryName: factoryName}
}

// Key returns the trait's identity key within a cache instance.
// Format: "factoryName:traitName".
func (t *Trait) Key() string {
	return TraitKey(t.FactoryName, t.Name)
}

// TraitKey builds the composite identity key for a trait.
func TraitKey(factoryName, traitName string) string {
	return factoryName + ":" + traitName
}

// ParseResult is the output unit of one extraction pass. Factories and
// traits are linked (each trait attached to its matching factory) before
// the result is returned.
type ParseResult struct {
	Factories []*Factory
	Traits    []*Trait
}

// EmptyParseResult returns a result with empty (non-nil) slices. Used as
// the recovery value when a file cannot be read or parsed.
func EmptyParseResult() *ParseResult {
	return &ParseResult{Factories: []*Factory{}, Traits: []*Trait{}}
}

// Merge appends another result's entities, preserving order.
func (r *ParseResult) Merge(other *ParseResult) {
	if other == nil {
		return
	}
	r.Factories = append(r.Factories, other.Factories...)
	r.Traits = append(r.Traits, other.Traits...)
}

// ReferenceKind distinguishes what a resolved call-site symbol points at.
type ReferenceKind int

const (
	// FactoryReference is a call-site symbol resolved to a factory
	// definition.
	FactoryReference ReferenceKind = iota
	// TraitReference is a call-site symbol resolved to a trait of the
	// call site's factory.
	TraitReference
)

func (k ReferenceKind) String() string {
	switch k {
	case FactoryReference:
		return "factory"
	case TraitReference:
		return "trait"
	default:
		return "unknown"
	}
}

// Span is a region of the queried text: the source side of a reference.
// Line and Column are 0-based; Length counts bytes including the leading
// colon of the symbol.
type Span struct {
	Line   int
	Column int
	Length int
}

// Reference maps a call-site symbol's source span to the location of its
// defining factory or trait.
type Reference struct {
	Span   Span
	Kind   ReferenceKind
	Target Location
	// FactoryName is the factory context of the reference: the
	// referenced factory itself, or the owning factory of a trait.
	FactoryName string
}

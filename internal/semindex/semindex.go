// Package semindex implements the SemanticIndex (SPEC_FULL.md §4.2):
// classification of relations by property bits and classification of
// identifiers as type-classes vs instances.
//
// Grounded on the teacher's internal/config/config.go for the
// dictionary-loading shape (defaults + env/file overrides) and on
// internal/modes/graph.go's plain-map bookkeeping style.
package semindex

import (
	"bufio"
	"io"
	"strings"

	"unified-thinking/internal/store"
	"unified-thinking/internal/types"
)

// RelationProperties holds the property bits of one relation dictionary
// entry (§3 Relation, §6 relation dictionary format).
type RelationProperties struct {
	Transitive  bool
	Symmetric   bool
	Inheritable bool
	Functional  bool
	InverseOf   types.Identifier
}

// defaultTransitiveRelations is the default transitive set when no
// dictionary file is loaded (§6).
var defaultTransitiveRelations = []types.Identifier{
	"isA", "locatedIn", "partOf", "subclassOf", "containedIn",
	"before", "after", "causes", "appealsTo", "leadsTo", "enables",
}

// SemanticIndex classifies relations and identifiers for the rest of
// the engine.
type SemanticIndex struct {
	relations map[types.Identifier]*RelationProperties
}

// NewDefault builds a SemanticIndex with the spec's default transitive
// set and no other property bits set.
func NewDefault() *SemanticIndex {
	idx := &SemanticIndex{relations: make(map[types.Identifier]*RelationProperties)}
	for _, r := range defaultTransitiveRelations {
		idx.relations[r] = &RelationProperties{Transitive: true}
	}
	// isA is additionally the inheritance backbone; inheritable
	// properties are a separate, dictionary-driven bit (§4.2), isA
	// itself is not inheritable.
	return idx
}

// New builds an empty SemanticIndex (no default transitive set); used
// when a relation dictionary file fully replaces the defaults.
func New() *SemanticIndex {
	return &SemanticIndex{relations: make(map[types.Identifier]*RelationProperties)}
}

// Define registers or updates a relation's property bits.
func (idx *SemanticIndex) Define(name types.Identifier, props RelationProperties) {
	idx.relations[name] = &props
}

func (idx *SemanticIndex) lookup(op types.Identifier) *RelationProperties {
	if p, ok := idx.relations[op]; ok {
		return p
	}
	return &RelationProperties{}
}

// IsTransitive reports whether op is declared transitive.
func (idx *SemanticIndex) IsTransitive(op types.Identifier) bool {
	return idx.lookup(op).Transitive
}

// IsInheritableProperty reports whether op's truth at a type transfers
// to instances via isA. The inheritable-property set is not
// hard-coded: it is exactly the set of relations whose dictionary entry
// has the inheritable bit (§4.2).
func (idx *SemanticIndex) IsInheritableProperty(op types.Identifier) bool {
	return idx.lookup(op).Inheritable
}

// IsSymmetric reports whether op is declared symmetric.
func (idx *SemanticIndex) IsSymmetric(op types.Identifier) bool {
	return idx.lookup(op).Symmetric
}

// InverseOf returns the declared inverse relation of op, if any.
func (idx *SemanticIndex) InverseOf(op types.Identifier) (types.Identifier, bool) {
	p := idx.lookup(op)
	if p.InverseOf == "" {
		return "", false
	}
	return p.InverseOf, true
}

// IsTypeClass reports whether identifier id is a TypeClass: its first
// occurrence is as the object of an isA fact, or it participates in a
// rule conclusion with arity > 0 "of that kind" — here realised as: id
// appears as the second argument of some `isA` fact in fs (§3).
func (idx *SemanticIndex) IsTypeClass(id types.Identifier, fs *store.FactStore) bool {
	for _, f := range fs.GetByOperator("isA") {
		if len(f.Args) == 2 && !f.Args[1].IsVariable() && !f.Args[1].IsHole() && f.Args[1].Name == id {
			return true
		}
	}
	return false
}

// LoadDictionary parses the textual relation-dictionary format (§6):
// one entry per line, `operatorName propertyBits...`, where
// propertyBits is any of __TransitiveRelation, __InheritableProperty,
// __SymmetricRelation, or inverseOf=<other>. Blank lines and lines
// starting with '#' are ignored.
func LoadDictionary(r io.Reader) (*SemanticIndex, error) {
	idx := New()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := types.Identifier(fields[0])
		props := RelationProperties{}
		for _, bit := range fields[1:] {
			switch {
			case bit == "__TransitiveRelation":
				props.Transitive = true
			case bit == "__InheritableProperty":
				props.Inheritable = true
			case bit == "__SymmetricRelation":
				props.Symmetric = true
			case strings.HasPrefix(bit, "inverseOf="):
				props.InverseOf = types.Identifier(strings.TrimPrefix(bit, "inverseOf="))
			}
		}
		idx.Define(name, props)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}

package models

// RelationshipType marks a row's role inside a variation family.
type RelationshipType string

const (
	RelationshipParent RelationshipType = "parent"
	RelationshipChild  RelationshipType = "child"
	RelationshipSingle RelationshipType = "single"
)

// Family is one resolved variation family. Membership is recomputed fresh
// each run; only the outcome is logged.
type Family struct {
	// ParentSKU is the synthetic marketplace parent for multi-member
	// families, empty for singletons.
	ParentSKU string
	// ParentMember is the deterministically selected representative whose
	// record seeds the parent row.
	ParentMember string
	// Members are the real catalog SKUs, sorted ascending.
	Members []string
	// Theme is the rendered variation theme, e.g. "Color-Size".
	Theme string
	// ThemeAttributes are the attribute names that vary, in theme order.
	ThemeAttributes []string
	// VariationValues holds, per member SKU, the normalized value of each
	// theme attribute.
	VariationValues map[string]map[string]string
}

// Singleton reports whether the family has a single member and therefore no
// parent/child split.
func (f *Family) Singleton() bool { return len(f.Members) == 1 }

// Size returns the member count.
func (f *Family) Size() int { return len(f.Members) }

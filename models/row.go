package models

// Cell is one (field, value) pair of an output row.
type Cell struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Row is one spreadsheet row in template field order.
type Row struct {
	SKU          string           `json:"sku"`
	ParentSKU    string           `json:"parent_sku,omitempty"`
	Relationship RelationshipType `json:"relationship"`
	// FamilyRank orders families deterministically in the output;
	// MemberRank orders rows within a family (parent first).
	FamilyRank int    `json:"-"`
	MemberRank int    `json:"-"`
	Cells      []Cell `json:"cells"`
}

// Get returns the value for a field name, or "" when absent.
func (r *Row) Get(field string) string {
	for _, c := range r.Cells {
		if c.Field == field {
			return c.Value
		}
	}
	return ""
}

// Values returns the cell values in template order.
func (r *Row) Values() []string {
	vals := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		vals[i] = c.Value
	}
	return vals
}

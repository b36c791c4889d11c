package services

import (
	"sort"

	"listing-service/models"
)

// OutputAssembler orders mapped rows for the spreadsheet writer: families in
// deterministic rank order with each parent row before its children.
type OutputAssembler struct{}

// NewOutputAssembler creates an assembler.
func NewOutputAssembler() *OutputAssembler {
	return &OutputAssembler{}
}

// Assemble stable-sorts rows by family rank, then member rank within the
// family, so a parent precedes all of its children and input order breaks
// remaining ties.
func (a *OutputAssembler) Assemble(rows []*models.Row) []*models.Row {
	ordered := append([]*models.Row(nil), rows...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].FamilyRank != ordered[j].FamilyRank {
			return ordered[i].FamilyRank < ordered[j].FamilyRank
		}
		return ordered[i].MemberRank < ordered[j].MemberRank
	})
	return ordered
}

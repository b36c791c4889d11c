package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerateListingRequest is the payload for triggering a generation run.
type GenerateListingRequest struct {
	Category string `json:"category" binding:"required"`
	// AllowOversized lets an operator override the family-size cap after
	// manual review.
	AllowOversized bool `json:"allow_oversized"`
}

// SkippedSKU is one failure-report entry for a SKU or family excluded from
// the output.
type SkippedSKU struct {
	SKU    string `json:"sku,omitempty"`
	Parent string `json:"parent_sku,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// FailureReport collects everything a run skipped and why. The run always
// produces a partial result plus this manifest; retries are an operator
// decision.
type FailureReport struct {
	MappingFailures   []SkippedSKU `json:"mapping_failures,omitempty"`
	OversizedFamilies []SkippedSKU `json:"oversized_families,omitempty"`
	LogConflicts      []SkippedSKU `json:"log_conflicts,omitempty"`
	Ambiguities       []SkippedSKU `json:"grouping_ambiguities,omitempty"`
}

// Empty reports whether nothing was skipped.
func (f *FailureReport) Empty() bool {
	return len(f.MappingFailures) == 0 && len(f.OversizedFamilies) == 0 &&
		len(f.LogConflicts) == 0 && len(f.Ambiguities) == 0
}

// GenerateResult summarizes one completed run.
type GenerateResult struct {
	BatchID     uuid.UUID     `json:"batch_id"`
	Category    string        `json:"category"`
	OutputFile  string        `json:"output_file"`
	SingleCount int           `json:"single_count"`
	FamilyCount int           `json:"family_count"`
	TotalRows   int           `json:"total_rows"`
	LoggedCount int           `json:"logged_count"`
	Failures    FailureReport `json:"failures"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// BatchGeneratedEvent is published to Kafka after a successful run.
type BatchGeneratedEvent struct {
	EventType   string    `json:"event_type"`
	BatchID     string    `json:"batch_id"`
	Category    string    `json:"category"`
	TotalRows   int       `json:"total_rows"`
	LoggedCount int       `json:"logged_count"`
	OutputFile  string    `json:"output_file"`
	Timestamp   time.Time `json:"timestamp"`
}

package services

import (
	"errors"
	"fmt"
)

// ServiceError is the typed error surfaced at the HTTP boundary.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// MappingValidationError excludes one SKU's row from the output; the batch
// continues with the remaining SKUs.
type MappingValidationError struct {
	SKU    string
	Field  string
	Reason string
}

func (e *MappingValidationError) Error() string {
	return fmt.Sprintf("mapping validation failed for %s: field %q: %s", e.SKU, e.Field, e.Reason)
}

// OversizedFamilyError flags a family above the configured member cap. The
// family is reported for manual review, never silently split.
type OversizedFamilyError struct {
	ParentMember string
	Size         int
	Cap          int
}

func (e *OversizedFamilyError) Error() string {
	return fmt.Sprintf("family of %s has %d members, cap is %d", e.ParentMember, e.Size, e.Cap)
}

// GroupingAmbiguityError marks a SKU matching two or more disjoint families
// under the comparison rule. The SKU is excluded pending rule clarification.
type GroupingAmbiguityError struct {
	SKU     string
	Matches int
}

func (e *GroupingAmbiguityError) Error() string {
	return fmt.Sprintf("sku %s matches %d disjoint families", e.SKU, e.Matches)
}

// ErrListingLogConflict marks a SKU already present in the listing log: an
// upstream candidate-selection inconsistency surfaced for audit.
var ErrListingLogConflict = errors.New("listing log conflict")

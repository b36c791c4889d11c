package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"listing-service/models"

	"go.uber.org/zap"
)

// Marketplace unit spellings for raw vendor units.
var (
	weightUnitMap = map[string]string{
		"lb": "Pounds",
		"kg": "Kilograms",
		"oz": "Ounces",
		"g":  "Grams",
	}
	dimensionUnitMap = map[string]string{
		"in": "Inches",
		"cm": "Centimeters",
		"mm": "Millimeters",
		"ft": "Feet",
	}
)

// RecordMapper produces one output row per SKU by applying template rules
// to the product record plus family-derived fields. Mapping a given
// (SKU, family, template) triple is deterministic; the only timestamp is
// the generation timestamp handed in from the run context.
type RecordMapper struct {
	normalizer *AttributeNormalizer
	logger     *zap.Logger
}

// NewRecordMapper creates a mapper sharing the resolver's normalizer so
// grouping decisions and emitted values never diverge.
func NewRecordMapper(normalizer *AttributeNormalizer, logger *zap.Logger) *RecordMapper {
	return &RecordMapper{normalizer: normalizer, logger: logger}
}

// MapRow maps one SKU record in its family context onto the template.
// A required field failing its validator aborts only this row with a
// MappingValidationError; the caller continues with the remaining SKUs.
func (m *RecordMapper) MapRow(
	rec *models.SKURecord,
	fam *models.Family,
	role models.RelationshipType,
	tpl *models.TemplateRuleSet,
	generatedAt time.Time,
) (*models.Row, error) {
	attrs := m.normalizer.NormalizeAll(rec.StringAttributes())

	sku := rec.MeowSKU
	if role == models.RelationshipParent {
		sku = fam.ParentSKU
	}

	cells := make([]models.Cell, 0, len(tpl.Fields))
	for _, rule := range tpl.Fields {
		value, err := m.resolveField(rule, rec, attrs, fam, role, generatedAt)
		if err != nil {
			return nil, err
		}
		value = alignToValidValues(rule.Field, value, tpl.ValidValues)
		if rule.Required && value == "" {
			return nil, &MappingValidationError{SKU: sku, Field: rule.Field, Reason: "required field is empty"}
		}
		cells = append(cells, models.Cell{Field: rule.Field, Value: value})
	}

	row := &models.Row{
		SKU:          sku,
		Relationship: role,
		Cells:        cells,
	}
	if role == models.RelationshipChild {
		row.ParentSKU = fam.ParentSKU
	}
	return row, nil
}

// resolveField dispatches on the rule kind. Constants always win; family
// rules apply only to family-context fields; direct rules pull from the
// normalized attribute mapping or the record; computed rules apply a
// declared transform.
func (m *RecordMapper) resolveField(
	rule models.FieldRule,
	rec *models.SKURecord,
	attrs map[string]string,
	fam *models.Family,
	role models.RelationshipType,
	generatedAt time.Time,
) (string, error) {
	switch rule.Kind {
	case models.RuleConstant:
		return rule.Value, nil

	case models.RuleFamily:
		return m.resolveFamilyField(rule, rec, fam, role, generatedAt)

	case models.RuleDirect:
		value := m.resolveSource(rule.Source, rec, attrs)
		if role == models.RelationshipParent && rule.Source == "product_name" {
			value = GeneralizeTitle(value)
		}
		return value, nil

	case models.RuleComputed:
		return m.resolveComputed(rule, rec, attrs)

	default:
		// Unknown kinds are rejected at template load time; reaching this
		// means the rule set bypassed validation.
		return "", &MappingValidationError{SKU: rec.MeowSKU, Field: rule.Field, Reason: fmt.Sprintf("unknown rule kind %q", rule.Kind)}
	}
}

func (m *RecordMapper) resolveFamilyField(
	rule models.FieldRule,
	rec *models.SKURecord,
	fam *models.Family,
	role models.RelationshipType,
	generatedAt time.Time,
) (string, error) {
	switch rule.Source {
	case models.FamilyFieldSKU:
		if role == models.RelationshipParent {
			return fam.ParentSKU, nil
		}
		return rec.MeowSKU, nil

	case models.FamilyFieldParentSKU:
		// Singles and parent rows carry no parent reference.
		if role == models.RelationshipChild {
			return fam.ParentSKU, nil
		}
		return "", nil

	case models.FamilyFieldRelationship:
		switch role {
		case models.RelationshipParent:
			return "Parent", nil
		case models.RelationshipChild:
			return "Child", nil
		default:
			return "", nil
		}

	case models.FamilyFieldVariationTheme:
		if role == models.RelationshipSingle {
			return "", nil
		}
		return fam.Theme, nil

	case models.FamilyFieldVariationValue:
		// Parent rows aggregate; they never carry a concrete variation value.
		if role != models.RelationshipChild {
			return "", nil
		}
		attr := strings.ToLower(rule.Attribute)
		return fam.VariationValues[rec.MeowSKU][attr], nil

	case models.FamilyFieldBatchTimestamp:
		return generatedAt.UTC().Format(time.RFC3339), nil

	default:
		return "", &MappingValidationError{SKU: rec.MeowSKU, Field: rule.Field, Reason: fmt.Sprintf("unknown family field %q", rule.Source)}
	}
}

func (m *RecordMapper) resolveComputed(rule models.FieldRule, rec *models.SKURecord, attrs map[string]string) (string, error) {
	switch rule.Transform {
	case models.TransformConcat:
		sep := rule.Separator
		if sep == "" {
			sep = " "
		}
		parts := make([]string, 0, len(rule.Sources))
		for _, src := range rule.Sources {
			if v := m.resolveSource(src, rec, attrs); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, sep), nil

	case models.TransformUpper:
		return strings.ToUpper(m.resolveSource(rule.Source, rec, attrs)), nil

	case models.TransformUnitMap:
		raw := strings.ToLower(m.resolveSource(rule.Source, rec, attrs))
		if rule.UnitType == "weight" {
			return weightUnitMap[raw], nil
		}
		return dimensionUnitMap[raw], nil

	case models.TransformSizeRound:
		raw := m.resolveSource(rule.Source, rec, attrs)
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return strconv.Itoa(int(math.Round(f))), nil
		}
		return raw, nil

	case models.TransformTitleGeneralize:
		return GeneralizeTitle(m.resolveSource(rule.Source, rec, attrs)), nil

	default:
		return "", &MappingValidationError{SKU: rec.MeowSKU, Field: rule.Field, Reason: fmt.Sprintf("unknown transform %q", rule.Transform)}
	}
}

// resolveSource reads a well-known record field or falls back to the
// normalized attribute mapping.
func (m *RecordMapper) resolveSource(source string, rec *models.SKURecord, attrs map[string]string) string {
	switch source {
	case "meow_sku":
		return rec.MeowSKU
	case "vendor_sku":
		return rec.VendorSKU
	case "category_name":
		return rec.CategoryName
	case "product_name":
		return rec.ProductName
	case "product_description":
		return rec.Description
	case "final_price":
		return strconv.FormatFloat(rec.FinalPrice, 'f', 2, 64)
	case "total_quantity":
		return strconv.Itoa(rec.TotalQuantity)
	}
	return attrs[strings.ToLower(source)]
}

// alignToValidValues snaps a value onto the template's allowed list for the
// field by normalized-exact match. Values with no match are left as-is and
// caught by the required-field validator when the field demands one.
func alignToValidValues(field, value string, validValues map[string][]string) string {
	candidates, ok := validValues[field]
	if !ok || value == "" {
		return value
	}
	for _, c := range candidates {
		if c == value {
			return value
		}
	}
	normValue := canonicalize(value)
	for _, c := range candidates {
		if canonicalize(c) == normValue {
			return c
		}
	}
	return value
}

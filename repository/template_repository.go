package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"listing-service/models"

	"gorm.io/gorm"
)

// ErrCategoryNotConfigured means no template exists for the requested
// category. It is fatal for the whole run: nothing can be emitted.
var ErrCategoryNotConfigured = errors.New("category not configured")

// TemplateRepository resolves the ordered, validated rule set for a
// category. Unresolved rule references are a load-time configuration error,
// never a per-row runtime error.
type TemplateRepository interface {
	FindByCategory(ctx context.Context, category string) (*models.TemplateRuleSet, error)
}

// GormTemplateRepository implements TemplateRepository using GORM.
type GormTemplateRepository struct {
	db *gorm.DB
}

// NewGormTemplateRepository creates a new GormTemplateRepository.
func NewGormTemplateRepository(db *gorm.DB) TemplateRepository {
	return &GormTemplateRepository{db: db}
}

// FindByCategory loads the latest stored template for the category and
// validates it before handing it to the pipeline.
func (r *GormTemplateRepository) FindByCategory(ctx context.Context, category string) (*models.TemplateRuleSet, error) {
	var stored models.CategoryTemplate
	err := r.db.WithContext(ctx).
		Where("LOWER(category) = LOWER(?)", category).
		Order("id DESC").
		First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotConfigured
	}
	if err != nil {
		return nil, err
	}
	return decodeTemplate(&stored)
}

// decodeTemplate unpacks the stored JSON columns into a rule set.
func decodeTemplate(stored *models.CategoryTemplate) (*models.TemplateRuleSet, error) {
	tpl := &models.TemplateRuleSet{
		Category:         stored.Category,
		VariationMapping: map[string]string{},
		ValidValues:      map[string][]string{},
	}

	if err := json.Unmarshal(stored.Fields, &tpl.Fields); err != nil {
		return nil, fmt.Errorf("template %s: decode fields: %w", stored.Category, err)
	}
	if len(stored.VariationAttributes) > 0 {
		if err := json.Unmarshal(stored.VariationAttributes, &tpl.VariationAttributes); err != nil {
			return nil, fmt.Errorf("template %s: decode variation attributes: %w", stored.Category, err)
		}
	}
	for k, v := range stored.VariationMapping {
		if s, ok := v.(string); ok {
			tpl.VariationMapping[k] = s
		}
	}
	if len(stored.ValidValues) > 0 {
		if err := json.Unmarshal(stored.ValidValues, &tpl.ValidValues); err != nil {
			return nil, fmt.Errorf("template %s: decode valid values: %w", stored.Category, err)
		}
	}
	if len(stored.PriorityThemes) > 0 {
		if err := json.Unmarshal(stored.PriorityThemes, &tpl.PriorityThemes); err != nil {
			return nil, fmt.Errorf("template %s: decode priority themes: %w", stored.Category, err)
		}
	}

	if err := ValidateTemplate(tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

var knownFamilyFields = map[string]bool{
	models.FamilyFieldSKU:            true,
	models.FamilyFieldParentSKU:      true,
	models.FamilyFieldRelationship:   true,
	models.FamilyFieldVariationTheme: true,
	models.FamilyFieldVariationValue: true,
	models.FamilyFieldBatchTimestamp: true,
}

var knownTransforms = map[string]bool{
	models.TransformConcat:          true,
	models.TransformUpper:           true,
	models.TransformUnitMap:         true,
	models.TransformSizeRound:       true,
	models.TransformTitleGeneralize: true,
}

// ValidateTemplate checks every rule's source reference resolves to a SKU
// record attribute, a family-derived field or a constant.
func ValidateTemplate(tpl *models.TemplateRuleSet) error {
	if len(tpl.Fields) == 0 {
		return fmt.Errorf("template %s: no fields configured", tpl.Category)
	}
	seen := make(map[string]bool, len(tpl.Fields))
	for _, rule := range tpl.Fields {
		if rule.Field == "" {
			return fmt.Errorf("template %s: rule with empty field name", tpl.Category)
		}
		if seen[rule.Field] {
			return fmt.Errorf("template %s: duplicate field %q", tpl.Category, rule.Field)
		}
		seen[rule.Field] = true

		switch rule.Kind {
		case models.RuleConstant:
			if rule.Value == "" {
				return fmt.Errorf("template %s: constant field %q has no value", tpl.Category, rule.Field)
			}
		case models.RuleFamily:
			if !knownFamilyFields[rule.Source] {
				return fmt.Errorf("template %s: field %q references unknown family field %q", tpl.Category, rule.Field, rule.Source)
			}
			if rule.Source == models.FamilyFieldVariationValue && rule.Attribute == "" {
				return fmt.Errorf("template %s: field %q needs an attribute for variation_value", tpl.Category, rule.Field)
			}
		case models.RuleDirect:
			if rule.Source == "" {
				return fmt.Errorf("template %s: direct field %q has no source", tpl.Category, rule.Field)
			}
		case models.RuleComputed:
			if !knownTransforms[rule.Transform] {
				return fmt.Errorf("template %s: field %q uses unknown transform %q", tpl.Category, rule.Field, rule.Transform)
			}
			if rule.Source == "" && len(rule.Sources) == 0 {
				return fmt.Errorf("template %s: computed field %q has no sources", tpl.Category, rule.Field)
			}
		default:
			return fmt.Errorf("template %s: field %q has unknown rule kind %q", tpl.Category, rule.Field, rule.Kind)
		}
	}
	return nil
}

package models

import (
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// RuleKind tags how a template field resolves its value.
type RuleKind string

const (
	RuleConstant RuleKind = "constant" // fixed marketplace value
	RuleFamily   RuleKind = "family"   // derived from the resolved family
	RuleDirect   RuleKind = "direct"   // copied from the SKU record
	RuleComputed RuleKind = "computed" // declared transform over source fields
)

// Family-derived field names usable by RuleFamily rules.
const (
	FamilyFieldSKU            = "sku"
	FamilyFieldParentSKU      = "parent_sku"
	FamilyFieldRelationship   = "relationship_type"
	FamilyFieldVariationTheme = "variation_theme"
	FamilyFieldVariationValue = "variation_value" // requires rule.Attribute
	FamilyFieldBatchTimestamp = "generation_timestamp"
)

// Transform names usable by RuleComputed rules.
const (
	TransformConcat          = "concat"
	TransformUpper           = "upper"
	TransformUnitMap         = "unit_map"
	TransformSizeRound       = "size_round"
	TransformTitleGeneralize = "title_generalize"
)

// FieldRule describes one output column of a category template.
type FieldRule struct {
	Field     string   `json:"field"`
	Kind      RuleKind `json:"kind"`
	Value     string   `json:"value,omitempty"`     // constant value
	Source    string   `json:"source,omitempty"`    // family field, record field or attribute
	Sources   []string `json:"sources,omitempty"`   // computed inputs
	Attribute string   `json:"attribute,omitempty"` // variation attribute for variation_value
	Transform string   `json:"transform,omitempty"` // computed transform name
	UnitType  string   `json:"unit_type,omitempty"` // weight | dimension for unit_map
	Separator string   `json:"separator,omitempty"` // concat separator
	Required  bool     `json:"required,omitempty"`
}

// TemplateRuleSet is the resolved, validated per-category schema.
type TemplateRuleSet struct {
	Category            string
	Fields              []FieldRule
	VariationAttributes []string            // attributes participating in grouping, in theme order
	VariationMapping    map[string]string   // attribute name -> theme word (e.g. color_name -> Color)
	ValidValues         map[string][]string // field -> allowed values
	PriorityThemes      []string
}

// FieldOrder returns the template's output column names in order.
func (t *TemplateRuleSet) FieldOrder() []string {
	order := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		order[i] = f.Field
	}
	return order
}

// CategoryTemplate is the stored form of a template rule set.
type CategoryTemplate struct {
	ID                  uint              `gorm:"primaryKey" json:"id"`
	Category            string            `gorm:"type:varchar(128);index;not null" json:"category"`
	TemplateName        string            `gorm:"type:varchar(256)" json:"template_name"`
	Fields              datatypes.JSON    `gorm:"column:fields" json:"fields"`
	VariationAttributes datatypes.JSON    `gorm:"column:variation_attributes" json:"variation_attributes"`
	VariationMapping    datatypes.JSONMap `gorm:"column:variation_mapping" json:"variation_mapping"`
	ValidValues         datatypes.JSON    `gorm:"column:valid_values" json:"valid_values"`
	PriorityThemes      datatypes.JSON    `gorm:"column:priority_themes" json:"priority_themes"`
	CreatedAt           time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// TableName overrides the default pluralization.
func (CategoryTemplate) TableName() string { return "category_templates" }

// trimFloat renders a float without a trailing ".00" tail for whole numbers.
func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

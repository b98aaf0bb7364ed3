package models

// QuestionType mirrors the Airtable field type a question is bound to.
type QuestionType string

const (
	SingleLineText      QuestionType = "singleLineText"
	MultilineText       QuestionType = "multilineText"
	SingleSelect        QuestionType = "singleSelect"
	MultipleSelects     QuestionType = "multipleSelects"
	MultipleAttachments QuestionType = "multipleAttachments"
)

// SupportedTypes lists the Airtable field types a form question can map to.
var SupportedTypes = []QuestionType{
	SingleLineText,
	MultilineText,
	SingleSelect,
	MultipleSelects,
	MultipleAttachments,
}

func (t QuestionType) Supported() bool {
	for _, s := range SupportedTypes {
		if s == t {
			return true
		}
	}
	return false
}

type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "notEquals"
	OpContains  Operator = "contains"
)

// Condition compares the answer of another question against a literal.
// Value is either a string or a list and is stored verbatim.
type Condition struct {
	QuestionKey string   `json:"questionKey" bson:"questionKey" yaml:"questionKey"`
	Operator    Operator `json:"operator" bson:"operator" yaml:"operator"`
	Value       any      `json:"value" bson:"value" yaml:"value"`
}

type ConditionalRules struct {
	Logic      Logic       `json:"logic" bson:"logic" yaml:"logic"`
	Conditions []Condition `json:"conditions" bson:"conditions" yaml:"conditions"`
}

type Question struct {
	QuestionKey      string            `json:"questionKey" bson:"questionKey"`
	AirtableFieldID  string            `json:"airtableFieldId" bson:"airtableFieldId"`
	Label            string            `json:"label" bson:"label"`
	Type             QuestionType      `json:"type" bson:"type"`
	Required         bool              `json:"required" bson:"required"`
	Options          []string          `json:"options" bson:"options"`
	ConditionalRules *ConditionalRules `json:"conditionalRules" bson:"conditionalRules"`
}

// Form is a published questionnaire bound to one Airtable base/table pair.
type Form struct {
	ID              string     `json:"_id,omitempty" bson:"_id,omitempty"`
	Owner           string     `json:"owner" bson:"owner"`
	Title           string     `json:"title" bson:"title"`
	AirtableBaseID  string     `json:"airtableBaseId" bson:"airtableBaseId"`
	AirtableTableID string     `json:"airtableTableId" bson:"airtableTableId"`
	Questions       []Question `json:"questions,omitempty" bson:"questions"`
	CreatedAt       string     `json:"createdAt" bson:"createdAt"`
	UpdatedAt       string     `json:"updatedAt" bson:"updatedAt"`
}

// Summary returns a copy of the form without its questions, used for listings.
func (f *Form) Summary() Form {
	s := *f
	s.Questions = nil
	return s
}

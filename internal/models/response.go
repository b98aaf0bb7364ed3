package models

type ResponseStatus string

const (
	StatusActive            ResponseStatus = "active"
	StatusDeletedInAirtable ResponseStatus = "deletedInAirtable"
)

type Response struct {
	ID               string         `json:"_id,omitempty" bson:"_id,omitempty"`
	FormID           string         `json:"formId" bson:"formId"`
	AirtableRecordID string         `json:"airtableRecordId" bson:"airtableRecordId"`
	Answers          map[string]any `json:"answers" bson:"answers"`
	Status           ResponseStatus `json:"status" bson:"status"`
	CreatedAt        string         `json:"createdAt" bson:"createdAt"`
	UpdatedAt        string         `json:"updatedAt" bson:"updatedAt"`
}

// ResponseSummary is the listing shape: a short preview instead of the full answers.
type ResponseSummary struct {
	ID               string            `json:"id"`
	AirtableRecordID string            `json:"airtableRecordId"`
	Status           ResponseStatus    `json:"status"`
	CreatedAt        string            `json:"createdAt"`
	UpdatedAt        string            `json:"updatedAt"`
	AnswersPreview   map[string]string `json:"answersPreview"`
}

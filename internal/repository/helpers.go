package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// normalizeID converts the _id field from numeric (float64) to string
// since OxiDB returns auto-increment numeric IDs.
func normalizeID(doc map[string]any) {
	if id, ok := doc["_id"]; ok {
		switch v := id.(type) {
		case float64:
			doc["_id"] = strconv.FormatFloat(v, 'f', 0, 64)
		case int:
			doc["_id"] = strconv.Itoa(v)
		}
	}
}

// extractID gets the inserted document ID from an OxiDB insert response.
func extractID(result map[string]any) string {
	if id, ok := result["id"]; ok {
		switch v := id.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', 0, 64)
		}
	}
	return ""
}

// toNumericID converts a string ID to float64 for OxiDB queries.
func toNumericID(id string) any {
	if n, err := strconv.ParseFloat(id, 64); err == nil {
		return n
	}
	return id
}

// toDoc encodes a model as an OxiDB document, without its _id.
func toDoc(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	return doc, nil
}

// fromDoc decodes an OxiDB document into out, normalizing its _id.
func fromDoc(doc map[string]any, out any) error {
	normalizeID(doc)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal doc: %w", err)
	}
	return nil
}

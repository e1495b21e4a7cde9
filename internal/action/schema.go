package action

import "encoding/json"

// SchemaField is a minimal parsed form of one field from a metaData
// action's schemaString. This is intentionally shallow - full
// schema-to-columnar-schema conversion is out of scope - but
// enough structure is kept to validate partition columns and drive the
// "info" CLI command.
type SchemaField struct {
	Name     string          `json:"name"`
	Type     json.RawMessage `json:"type"`
	Nullable bool            `json:"nullable"`
}

// Schema is the parsed form of metaData.schemaString.
type Schema struct {
	Type   string        `json:"type"`
	Fields []SchemaField `json:"fields"`
}

// ParseSchema parses the embedded JSON string carried by a metaData
// action.
func ParseSchema(schemaString string) (Schema, error) {
	var s Schema
	if schemaString == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(schemaString), &s); err != nil {
		return Schema{}, err
	}
	return s, nil
}

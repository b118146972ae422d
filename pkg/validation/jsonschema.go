package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RecurrenceRuleSchema constrains recurrence rules at the API boundary so the
// engine only ever sees the closed type enum.
const RecurrenceRuleSchema = `{
	"type": "object",
	"required": ["type"],
	"properties": {
		"type": {
			"type": "string",
			"enum": ["daily", "weekly", "weekdays", "monthly", "yearly"]
		},
		"interval": {"type": "integer"},
		"daysOfWeek": {
			"type": "array",
			"items": {"type": "integer", "minimum": 0, "maximum": 6}
		},
		"dayOfMonth": {"type": "integer", "minimum": 1, "maximum": 31}
	},
	"additionalProperties": false
}`

// ValidateJSONWithSchema validates a JSON data string against a JSON schema string.
func ValidateJSONWithSchema(schemaJSON string, dataJSON string) error {
	if schemaJSON == "" {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile JSON schema: %w. Schema: %s", err, schemaJSON)
	}

	var data interface{}
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return fmt.Errorf("failed to unmarshal JSON data: %w. Data: %s", err, dataJSON)
	}

	if err := sch.Validate(data); err != nil {
		validationErr, ok := err.(*jsonschema.ValidationError)
		if ok {
			return fmt.Errorf("JSON data failed validation against schema: %v", validationErr)
		}
		return fmt.Errorf("JSON data failed validation (unexpected error type): %w", err)
	}
	return nil
}

// ValidateRecurrenceRule checks a serialized recurrence rule against
// RecurrenceRuleSchema. An empty string is valid (no recurrence).
func ValidateRecurrenceRule(ruleJSON string) error {
	if ruleJSON == "" {
		return nil
	}
	return ValidateJSONWithSchema(RecurrenceRuleSchema, ruleJSON)
}

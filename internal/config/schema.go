package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	enverrors "github.com/envault/envault/internal/errors"
)

// documentSchema describes the envault.yaml structure for `envault doctor`.
// Loading is deliberately lenient about unknown variable fields; the schema
// pins down the shapes that Load cannot diagnose precisely.
const documentSchema = `{
  "type": "object",
  "properties": {
    "version": {"type": "integer"},
    "vault": {
      "type": "object",
      "properties": {
        "address": {"type": "string"},
        "namespace": {"type": "string"},
        "prefix": {"type": "string"},
        "cache_ttl": {"type": "integer", "minimum": 0},
        "timeout_ms": {"type": "integer", "minimum": 0},
        "retry_attempts": {"type": "integer", "minimum": 1}
      },
      "additionalProperties": false
    },
    "envs": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": {
          "type": "object",
          "properties": {
            "literal": {"type": "string"},
            "env": {"type": "string"},
            "secret": {"type": "string"},
            "key": {"type": "string"},
            "keys": {"type": "array", "items": {"type": "string"}},
            "default": {"type": "string"},
            "cast": {"type": "string"},
            "transform": {"type": "array", "items": {"type": "string"}},
            "file": {"type": "boolean"},
            "optional": {"type": "boolean"}
          },
          "additionalProperties": false
        }
      }
    }
  },
  "additionalProperties": false
}`

// ValidateSchema checks the file at path against the configuration schema and
// returns one ConfigError per violation.
func ValidateSchema(path string) []error {
	data, err := os.ReadFile(path)
	if err != nil {
		return []error{enverrors.ConfigError{
			Field:      "path",
			Value:      path,
			Message:    "configuration file not found",
			Suggestion: "Run 'envault init' to create a new configuration file",
		}}
	}

	var document any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return []error{enverrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}}
	}

	// gojsonschema evaluates JSON documents; round-trip the YAML tree.
	encoded, err := json.Marshal(document)
	if err != nil {
		return []error{enverrors.ConfigError{
			Message:    "configuration contains values that cannot be represented as JSON",
			Suggestion: "Remove YAML-only constructs such as binary tags or complex map keys",
		}}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(encoded),
	)
	if err != nil {
		return []error{fmt.Errorf("schema validation failed: %w", err)}
	}

	var violations []error
	for _, desc := range result.Errors() {
		violations = append(violations, enverrors.ConfigError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return violations
}

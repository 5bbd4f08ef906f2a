package vault

import (
	"encoding/json"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"github.com/envault/envault/pkg/store"
)

// overrideSchema accepts only a top-level JSON object; arrays, scalars, and
// null are rejected before any decoding happens.
var overrideSchema = gojsonschema.NewStringLoader(`{"type": "object"}`)

// lookupOverride checks the environment for an override of v's secret.
//
// Returns (nil, false, nil) when the override variable is unset. When set,
// its content must decode to a JSON object; anything else is an
// OverrideError naming the variable.
func lookupOverride(v Variable) (store.Secret, bool, error) {
	name := v.OverrideName()
	raw, ok := os.LookupEnv(name)
	if !ok {
		return nil, false, nil
	}

	mapping, err := DecodeOverride(name, raw)
	if err != nil {
		return nil, true, err
	}
	return mapping, true, nil
}

// DecodeOverride validates and decodes the JSON content of an override
// environment variable. The content must be a JSON-encoded object.
func DecodeOverride(name, raw string) (store.Secret, error) {
	result, err := gojsonschema.Validate(overrideSchema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		// Malformed JSON never reaches schema evaluation.
		return nil, OverrideError{Variable: name, Reason: "invalid JSON"}
	}
	if !result.Valid() {
		return nil, OverrideError{Variable: name, Reason: result.Errors()[0].Description()}
	}

	var mapping map[string]any
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, OverrideError{Variable: name, Reason: err.Error()}
	}
	return store.Secret(mapping), nil
}

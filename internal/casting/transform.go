package casting

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
)

// transformFunc rewrites a resolved string value.
type transformFunc func(value string) (string, error)

var transforms = map[string]transformFunc{
	"trim": func(value string) (string, error) {
		return strings.TrimSpace(value), nil
	},
	"base64_decode": func(value string) (string, error) {
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return "", fmt.Errorf("base64_decode: %w", err)
		}
		return string(decoded), nil
	},
	"base64_encode": func(value string) (string, error) {
		return base64.StdEncoding.EncodeToString([]byte(value)), nil
	},
}

// ValidTransform reports whether name is a known transform.
func ValidTransform(name string) bool {
	_, ok := transforms[name]
	return ok
}

// TransformNames returns the known transform names, sorted.
func TransformNames() []string {
	names := make([]string, 0, len(transforms))
	for name := range transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Transform applies the named chain in order. An unknown name or a failing
// step aborts the chain.
func Transform(chain []string, value string) (string, error) {
	for _, name := range chain {
		fn, ok := transforms[name]
		if !ok {
			return "", fmt.Errorf("unknown transform %q", name)
		}
		var err error
		value, err = fn(value)
		if err != nil {
			return "", err
		}
	}
	return value, nil
}

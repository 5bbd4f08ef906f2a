package vault

import (
	"strings"

	"github.com/envault/envault/pkg/store"
)

// Variable is a declarative handle for "secret at Path, optionally narrowed
// to the nested key sequence Keys". Values are immutable; Key returns a new
// Variable so a base path can be reused across many declared variables.
type Variable struct {
	path string
	keys []string
}

// NewVariable creates a variable for the given mount-relative secret path.
func NewVariable(path string) Variable {
	return Variable{path: path}
}

// Path returns the mount-relative secret path.
func (v Variable) Path() string {
	return v.path
}

// Keys returns the nested-key lookup chain applied after fetch.
func (v Variable) Keys() []string {
	keys := make([]string, len(v.keys))
	copy(keys, v.keys)
	return keys
}

// Key returns a new Variable with key appended to the lookup chain. The
// receiver is never mutated.
func (v Variable) Key(key string) Variable {
	keys := make([]string, 0, len(v.keys)+1)
	keys = append(keys, v.keys...)
	keys = append(keys, key)
	return Variable{path: v.path, keys: keys}
}

// OverrideName derives the environment variable name that overrides this
// variable's secret: the path is stripped of surrounding separators,
// uppercased, and inner separators become a double underscore, so "path/to"
// maps to "PATH__TO". The derivation ignores Keys - variables differing only
// in nested keys share one override.
func (v Variable) OverrideName() string {
	return strings.ReplaceAll(strings.ToUpper(NormalizePath(v.path)), "/", "__")
}

// Extract descends through mapping following the variable's key chain.
//
// With no keys the whole mapping is returned. A missing or non-mapping
// intermediate yields a KeyMissingError naming fullPath and the offending
// key, distinct from the path itself being absent.
func (v Variable) Extract(fullPath string, mapping store.Secret) (any, error) {
	if len(v.keys) == 0 {
		return mapping, nil
	}

	var current any = map[string]any(mapping)
	for _, key := range v.keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, KeyMissingError{Path: fullPath, Key: key}
		}
		current, ok = m[key]
		if !ok {
			return nil, KeyMissingError{Path: fullPath, Key: key}
		}
	}
	return current, nil
}

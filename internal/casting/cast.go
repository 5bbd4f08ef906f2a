// Package casting converts resolved configuration strings into typed values
// and applies post-resolution transforms. It sits below the config layer so
// declarations can be validated against the same registry the resolver uses.
package casting

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Layouts accepted by the date and datetime casts.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

// castFunc converts a resolved value. warn receives human-readable notes
// about lossy conversions; the conversion still succeeds.
type castFunc func(value any, warn func(string)) (any, error)

var casts = map[string]castFunc{
	"string":   castString,
	"bool":     castBool,
	"int":      castInt,
	"float":    castFloat,
	"decimal":  castDecimal,
	"date":     castDate,
	"datetime": castDateTime,
}

// containerCasts split a comma-separated string; set deduplicates.
var containerCasts = map[string]bool{
	"list":  false,
	"tuple": false,
	"set":   true,
}

// ValidCast reports whether name is a known cast, including container casts
// with an element subcast like "list:int".
func ValidCast(name string) bool {
	base, sub := splitContainerCast(name)
	if _, ok := containerCasts[base]; ok {
		if sub == "" {
			return true
		}
		_, ok := casts[sub]
		return ok
	}
	_, ok := casts[name]
	return ok
}

// CastNames returns the known cast names, sorted.
func CastNames() []string {
	names := make([]string, 0, len(casts)+len(containerCasts))
	for name := range casts {
		names = append(names, name)
	}
	for name := range containerCasts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cast converts value according to the named cast. warn may be nil.
func Cast(name string, value any, warn func(string)) (any, error) {
	if warn == nil {
		warn = func(string) {}
	}

	base, sub := splitContainerCast(name)
	if _, ok := containerCasts[base]; ok {
		return castContainer(base, sub, value, warn)
	}

	fn, ok := casts[name]
	if !ok {
		return nil, fmt.Errorf("unknown cast %q", name)
	}
	return fn(value, warn)
}

func splitContainerCast(name string) (base, sub string) {
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		return name[:idx], name[idx+1:]
	}
	return name, ""
}

func castString(value any, _ func(string)) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// castBool accepts the usual truthy and falsy spellings; the empty string is
// false. Anything else is an error rather than a guess.
func castBool(value any, _ func(string)) (any, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "yes", "true", "on":
		return true, nil
	case "0", "no", "false", "off", "":
		return false, nil
	}
	return nil, fmt.Errorf("cannot cast %q to bool", s)
}

func castInt(value any, _ func(string)) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int64(v)) {
			return nil, fmt.Errorf("cannot cast %v to int without losing precision", v)
		}
		return int(v), nil
	}
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("cannot cast %q to int", s)
	}
	return n, nil
}

func castFloat(value any, _ func(string)) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("cannot cast %q to float", s)
	}
	return f, nil
}

// castDecimal builds an exact decimal. A float input already lost precision
// upstream; the conversion proceeds but the caller is warned.
func castDecimal(value any, warn func(string)) (any, error) {
	switch v := value.(type) {
	case float64:
		warn(fmt.Sprintf("float value %v converted to decimal; store decimals as strings to avoid precision loss", v))
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	}
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("cannot cast %q to decimal", s)
	}
	return d, nil
}

func castDate(value any, _ func(string)) (any, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("cannot cast %q to date (expected %s)", s, DateLayout)
	}
	return t, nil
}

func castDateTime(value any, _ func(string)) (any, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(DateTimeLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("cannot cast %q to datetime (expected %s)", s, DateTimeLayout)
	}
	return t, nil
}

// castContainer splits a comma-separated string and optionally casts each
// element. set deduplicates while preserving first-seen order.
func castContainer(base, sub string, value any, warn func(string)) (any, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}

	var parts []string
	if strings.TrimSpace(s) != "" {
		for _, part := range strings.Split(s, ",") {
			parts = append(parts, strings.TrimSpace(part))
		}
	}

	if containerCasts[base] { // set
		seen := make(map[string]struct{}, len(parts))
		unique := parts[:0]
		for _, part := range parts {
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			unique = append(unique, part)
		}
		parts = unique
	}

	out := make([]any, 0, len(parts))
	for _, part := range parts {
		if sub == "" {
			out = append(out, part)
			continue
		}
		elem, err := Cast(sub, part, warn)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

func asString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("cannot cast %T value %v", value, value)
}

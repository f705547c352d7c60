package storage

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Option values come from JSON or YAML config files, so numbers may arrive
// as int or float64 and booleans occasionally as strings.

// OptString returns a string option, failing when required and absent
func OptString(options map[string]interface{}, key string, required bool) (string, error) {
	v, ok := options[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("%w: missing required option: %s", ErrInvalidConfig, key)
		}
		return "", nil
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: option %s must be a string", ErrInvalidConfig, key)
	}
	if required && s == "" {
		return "", fmt.Errorf("%w: option %s must not be empty", ErrInvalidConfig, key)
	}
	return s, nil
}

// OptInt returns an integer option or def when absent
func OptInt(options map[string]interface{}, key string, def int) (int, error) {
	v, ok := options[key]
	if !ok || v == nil {
		return def, nil
	}

	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%w: option %s must be an integer", ErrInvalidConfig, key)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("%w: option %s must be an integer", ErrInvalidConfig, key)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: option %s must be an integer", ErrInvalidConfig, key)
	}
}

// OptBool returns a boolean option or def when absent
func OptBool(options map[string]interface{}, key string, def bool) (bool, error) {
	v, ok := options[key]
	if !ok || v == nil {
		return def, nil
	}

	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("%w: option %s must be a boolean", ErrInvalidConfig, key)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%w: option %s must be a boolean", ErrInvalidConfig, key)
	}
}

// MatchPattern reports whether the base name of name matches the glob
// pattern. A malformed pattern matches nothing.
func MatchPattern(pattern, name string) bool {
	ok, err := path.Match(pattern, path.Base(name))
	return err == nil && ok
}

// PatternPrefix returns the literal part of pattern before its first
// wildcard, used as a server-side listing prefix
func PatternPrefix(pattern string) string {
	if idx := strings.IndexAny(pattern, "*?[\\"); idx >= 0 {
		return pattern[:idx]
	}
	return pattern
}

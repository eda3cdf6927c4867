package rpc

import "github.com/ctxrelay/rlm-server/internal/apperrors"

func optString(args Args, name, def string) string {
	if v, ok := args[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func reqString(args Args, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", apperrors.Newf(apperrors.ValidationMissingField, "missing required field %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", apperrors.Newf(apperrors.ValidationInvalidInput, "field %q must be a string", name)
	}
	return s, nil
}

func optInt(args Args, name string, def int) int {
	v, ok := args[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return def
}

func optInt64(args Args, name string, def int64) int64 {
	v, ok := args[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	}
	return def
}

func optFloat(args Args, name string, def float64) float64 {
	v, ok := args[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

func optBool(args Args, name string, def bool) bool {
	v, ok := args[name]
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func optIntSlice(args Args, name string) []int {
	v, ok := args[name]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, e := range raw {
		switch n := e.(type) {
		case float64:
			out = append(out, int(n))
		case int:
			out = append(out, n)
		}
	}
	return out
}

func optStringMap(args Args, name string) map[string]interface{} {
	v, ok := args[name]
	if !ok {
		return nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return m
}

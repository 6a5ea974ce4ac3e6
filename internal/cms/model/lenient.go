package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
)

// coercion rewrites a loosely typed member into the shape its field expects.
// ok is false when the value cannot be understood.
type coercion func(raw json.RawMessage) (fixed json.RawMessage, ok bool)

var (
	courseCoercions = map[string]coercion{
		"order":    coerceInt,
		"visible":  coerceBool,
		"tools":    coerceStrings,
		"outcomes": coerceStrings,
	}
	postCoercions = map[string]coercion{
		"published": coerceBool,
		"featured":  coerceBool,
		"tags":      coerceStrings,
	}
	categoryCoercions = map[string]coercion{
		"order": coerceInt,
	}
	learningPathCoercions = map[string]coercion{
		"order":   coerceInt,
		"courses": coerceStrings,
	}
)

// coerceMembers applies rules to the members of a JSON object.
//
// Members that cannot be coerced are removed from the returned document
// and handed back in kept, so the typed decode never fails on them.
// data that is not an object is returned unchanged.
func coerceMembers(data []byte, rules map[string]coercion) (fixed []byte, kept Extra, err error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return data, nil, nil
	}

	members := map[string]json.RawMessage{}
	if err = json.Unmarshal(data, &members); err != nil {
		return nil, nil, errors.WithStack(err)
	}

	changed := false
	for name, coerce := range rules {
		raw, ok := members[name]
		if !ok {
			continue
		}

		v, ok := coerce(raw)
		switch {
		case !ok:
			if kept == nil {
				kept = Extra{}
			}
			kept[name] = raw
			delete(members, name)
		case bytes.Equal(v, raw):
			continue
		default:
			members[name] = v
		}
		changed = true
	}

	if !changed {
		return data, nil, nil
	}

	fixed, err = json.Marshal(members)
	return fixed, kept, errors.WithStack(err)
}

// coerceInt accepts integers, integral floats and numeric strings.
func coerceInt(raw json.RawMessage) (json.RawMessage, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}

	switch v := v.(type) {
	case nil:
		return raw, true
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return nil, false
		}
		return json.RawMessage(strconv.Itoa(int(v))), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return json.RawMessage("null"), true
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, false
		}
		return json.RawMessage(strconv.Itoa(n)), true
	}

	return nil, false
}

// coerceBool accepts booleans, 0 and 1, and the usual spellings of yes and no.
func coerceBool(raw json.RawMessage) (json.RawMessage, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}

	switch v := v.(type) {
	case nil, bool:
		return raw, true
	case float64:
		switch v {
		case 0:
			return json.RawMessage("false"), true
		case 1:
			return json.RawMessage("true"), true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return json.RawMessage("true"), true
		case "false", "0", "no", "off", "":
			return json.RawMessage("false"), true
		}
	}

	return nil, false
}

// coerceStrings accepts a list of scalars or a single comma separated string.
func coerceStrings(raw json.RawMessage) (json.RawMessage, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}

	var items []string
	switch v := v.(type) {
	case nil:
		return raw, true
	case string:
		items = []string{}
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	case []any:
		items = make([]string, 0, len(v))
		allStrings := true
		for _, item := range v {
			switch item := item.(type) {
			case string:
				items = append(items, item)
			case float64, bool:
				allStrings = false
				items = append(items, scalarText(item))
			default:
				return nil, false
			}
		}
		if allStrings {
			return raw, true
		}
	default:
		return nil, false
	}

	fixed, err := json.Marshal(items)
	if err != nil {
		return nil, false
	}
	return fixed, true
}

func scalarText(v any) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// mergeKept adds the members kept aside by coerceMembers.
func (e Extra) mergeKept(kept Extra) Extra {
	if len(kept) == 0 {
		return e
	}
	if e == nil {
		e = Extra{}
	}
	for k, raw := range kept {
		e[k] = raw
	}
	return e
}

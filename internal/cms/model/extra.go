package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	"github.com/Laisky/errors/v2"
)

// Extra holds JSON members a typed struct does not declare.
// They are written back unchanged so admin-defined sections survive a round trip.
type Extra map[string]json.RawMessage

var knownFieldsCache sync.Map // reflect.Type -> map[string]struct{}

// knownJSONFields returns the json member names declared by struct type t.
func knownJSONFields(t reflect.Type) map[string]struct{} {
	if v, ok := knownFieldsCache.Load(t); ok {
		return v.(map[string]struct{})
	}

	fields := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields[name] = struct{}{}
	}

	knownFieldsCache.Store(t, fields)
	return fields
}

// marshalWithExtra marshals v (a plain struct without custom marshalers)
// and merges the extra members.
//
// A declared member only appears in extra when its value could not be
// coerced to the field type, so the raw value wins over the zero field.
func marshalWithExtra(v any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(extra) == 0 {
		return data, nil
	}

	members := map[string]json.RawMessage{}
	if err = json.Unmarshal(data, &members); err != nil {
		return nil, errors.WithStack(err)
	}
	for k, raw := range extra {
		members[k] = raw
	}

	data, err = json.Marshal(members)
	return data, errors.WithStack(err)
}

// unmarshalWithExtra decodes data into v (pointer to a plain struct)
// and returns the members v does not declare.
func unmarshalWithExtra(data []byte, v any) (Extra, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, errors.WithStack(err)
	}

	members := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, errors.WithStack(err)
	}

	known := knownJSONFields(reflect.TypeOf(v).Elem())
	var extra Extra
	for k, raw := range members {
		if _, ok := known[k]; ok {
			continue
		}
		if extra == nil {
			extra = Extra{}
		}
		extra[k] = raw
	}

	return extra, nil
}

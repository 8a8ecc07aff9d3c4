package datastore

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema describing the snapshot of T.
func Schema[T Datable]() ([]byte, error) {
	t := reflect.TypeFor[T]()
	name, err := nameOf(t)
	if err != nil {
		return nil, err
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.ReflectFromType(t)
	s.Title = name
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema for %s: %w", name, err)
	}
	return append(data, '\n'), nil
}

// Package store holds the registry of tagstore backends
// and operations that span several of them.
//
// Each backend subpackage registers a Factory under its name in an init function,
// so importing it for side effects makes it available to Create.
package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/tagstore"
)

// Factory creates a Backend from a config map.
type Factory func(context.Context, map[string]interface{}) (tagstore.Backend, error)

var registry = make(map[string]Factory)

// Register makes a Factory available to Create under key.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create creates a Backend using the Factory registered under key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (tagstore.Backend, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// Nested creates the Backend described by conf[param],
// which must be a config map with a "type" entry.
// Decorating backends use it for the backend they wrap.
func Nested(ctx context.Context, conf map[string]interface{}, param string) (tagstore.Backend, error) {
	nested, ok := conf[param].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf(`missing "%s" parameter`, param)
	}
	nestedType, ok := nested["type"].(string)
	if !ok {
		return nil, fmt.Errorf(`"%s" parameter missing "type"`, param)
	}
	b, err := Create(ctx, nestedType, nested)
	return b, errors.Wrapf(err, "creating %s backend", param)
}

// Int reads an integer config parameter.
// Config maps decoded from JSON carry numbers as float64 or json.Number,
// and ones decoded from YAML as int.
func Int(conf map[string]interface{}, param string) (int, bool) {
	switch v := conf[param].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case interface{ Int64() (int64, error) }:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

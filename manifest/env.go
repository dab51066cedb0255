package manifest

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/golobby/cast"
)

// EnvPrefix prefixes every environment variable the overlay reads.
const EnvPrefix = "KICKSTART"

// LookupFunc looks up an environment variable.
type LookupFunc func(name string) (string, bool)

// Overlay sets every field of m carrying an env tag from the variable
// PREFIX_TAG, when that variable is set and not empty.
func Overlay(m *Manifest, prefix string, lookup LookupFunc) error {
	rv := reflect.ValueOf(m).Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}

		name := strings.ToUpper(tag)
		if prefix != "" {
			name = prefix + "_" + name
		}

		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}

		converted, err := cast.FromType(value, field.Type)
		if err != nil {
			return fmt.Errorf("cannot convert %s to %v: %w", name, field.Type, err)
		}
		rv.Field(i).Set(reflect.ValueOf(converted))
	}

	return nil
}

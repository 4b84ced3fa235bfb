// Package codec centralizes the serialization of pristine documents.
//
// The codec name is persisted with every collection (and every replace
// journal record), so a collection written with one codec is always read back
// with the same codec. Changing the default only affects new collections.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "yaml":
		return YAML{}, true
	default:
		return nil, false
	}
}

// MustByName is like ByName but panics on unknown names.
func MustByName(name string) Codec {
	c, ok := ByName(name)
	if !ok {
		panic(fmt.Errorf("unknown codec %q", name))
	}
	return c
}

// Default is the codec used for newly created collections.
var Default Codec = GoJSON{}

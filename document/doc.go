// Package document defines the record model stored by docgo.
//
// A Document is a map of field names to Values. A Value is a small tagged
// union holding either a scalar (string, integer, float or boolean) or a flat
// list of scalars:
//
//	doc := document.Document{
//	    "id":       document.String("A"),
//	    "title":    document.String("Test"),
//	    "year":     document.Int(2024),
//	    "keywords": document.Strings("Test", "Pilaster"),
//	}
//
// Values carry their kind through serialization, so an integer never comes
// back as a float and vice versa. Use FromMap to adapt generic
// map[string]any input (for example decoded JSON or YAML).
package document

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/docgo"
	"github.com/hupe1980/docgo/document"
)

// readDocuments decodes a YAML stream (JSON is accepted as a subset) from
// the file at path, or from in when path is empty or "-". Each stream entry
// is a mapping or a sequence of mappings.
func readDocuments(in io.Reader, path string) ([]document.Document, error) {
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}

	var docs []document.Document
	dec := yaml.NewDecoder(in)
	for {
		var node any
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}

		switch x := node.(type) {
		case nil:
		case map[string]any:
			doc, err := document.FromMap(x)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		case []any:
			for i, item := range x {
				m, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("entry %d: want a mapping, got %T", i, item)
				}
				doc, err := document.FromMap(m)
				if err != nil {
					return nil, fmt.Errorf("entry %d: %w", i, err)
				}
				docs = append(docs, doc)
			}
		default:
			return nil, fmt.Errorf("want a mapping or a sequence of mappings, got %T", node)
		}
	}
	return docs, nil
}

// parseWhere turns repeated field=value flags into a Narrower.
func parseWhere(pairs []string) (docgo.Narrower, error) {
	spec := make(docgo.Narrower, len(pairs))
	for _, p := range pairs {
		field, value, ok := strings.Cut(p, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --where %q (want field=value)", p)
		}
		spec[field] = document.String(value)
	}
	return spec, nil
}

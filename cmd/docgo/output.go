package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/docgo/document"
)

// printer renders command results in the configured output format.
type printer struct {
	w      io.Writer
	format string
}

func (cli *CLI) printer() (*printer, error) {
	format := cli.viperInst.GetString("output")
	switch format {
	case "json", "yaml":
		return &printer{w: cli.out, format: format}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want json|yaml)", format)
	}
}

func (p *printer) print(v any) error {
	switch p.format {
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func (p *printer) documents(docs []document.Document) error {
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		out[i] = d.ToMap()
	}
	return p.print(out)
}

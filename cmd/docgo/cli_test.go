package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docgo"
)

const people = `
id: alice
name: Alice
city: Berlin
age: 31
---
id: bob
name: Bob
city: Hamburg
age: 27
---
id: carol
name: Carol
city: Berlin
tags: [admin, ops]
`

// run executes the CLI with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cli := newCLI(strings.NewReader(stdin), &out, &errOut)
	cli.rootCmd.SetArgs(append([]string{"--log-format", "none"}, args...))
	err := cli.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := run(t, stdin, args...)
	require.NoError(t, err, "docgo %s", strings.Join(args, " "))
	return out
}

func decodeDocs(t *testing.T, out string) []map[string]any {
	t.Helper()
	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	return docs
}

func ids(docs []map[string]any) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		id, _ := d["id"].(string)
		out = append(out, id)
	}
	return out
}

func TestCLI_Workflow(t *testing.T) {
	path := t.TempDir()
	base := []string{"--path", path, "--collection", "people"}
	with := func(args ...string) []string { return append(append([]string{}, base...), args...) }

	out := mustRun(t, "", with("create")...)
	assert.Contains(t, out, "created collection people")

	out = mustRun(t, people, with("insert")...)
	assert.Equal(t, "inserted 3\n", out)

	assert.Equal(t, "3\n", mustRun(t, "", with("count")...))
	assert.Equal(t, "2\n", mustRun(t, "", with("count", "--where", "city=Berlin")...))

	docs := decodeDocs(t, mustRun(t, "", with("find", "--where", "city=Berlin")...))
	assert.Equal(t, []string{"alice", "carol"}, ids(docs))

	docs = decodeDocs(t, mustRun(t, "", with("find", "--where", "age=27")...))
	assert.Equal(t, []string{"bob"}, ids(docs))

	docs = decodeDocs(t, mustRun(t, "", with("find", "city:berlin", "-name:alice")...))
	assert.Equal(t, []string{"carol"}, ids(docs))

	docs = decodeDocs(t, mustRun(t, "", with("find")...))
	assert.Len(t, docs, 3)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "", with("get", "bob")...)), &doc))
	assert.Equal(t, "Hamburg", doc["city"])

	_, err := run(t, "", with("get", "dave")...)
	assert.Error(t, err)

	out = mustRun(t, "{id: bob, name: Bob, city: Berlin}", with("save")...)
	assert.Equal(t, "saved 1\n", out)
	assert.Equal(t, "3\n", mustRun(t, "", with("count", "--where", "city=Berlin")...))

	var fields []string
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "", with("fields")...)), &fields))
	assert.Equal(t, []string{"age", "city", "id", "name", "tags"}, fields)

	var ages map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "", with("fields", "age")...)), &ages))
	assert.Equal(t, map[string]any{"alice": float64(31)}, ages)

	outDir := t.TempDir()
	out = mustRun(t, "", with("export", "--to", "dir", "--dir", outDir)...)
	assert.Equal(t, "exported 3\n", out)
	for _, id := range []string{"alice", "bob", "carol"} {
		_, err := os.Stat(filepath.Join(outDir, id))
		assert.NoError(t, err, id)
	}

	assert.Equal(t, "deleted 1\n", mustRun(t, "", with("delete", "--id", "alice")...))
	assert.Equal(t, "deleted 2\n", mustRun(t, "", with("delete", "--where", "city=Berlin")...))
	assert.Equal(t, "0\n", mustRun(t, "", with("count")...))

	_, err = run(t, "", with("empty")...)
	assert.Error(t, err)
	assert.Equal(t, "emptied\n", mustRun(t, "", with("empty", "--yes")...))

	assert.Equal(t, "people\n", mustRun(t, "", "--path", path, "collections"))
}

func TestCLI_Errors(t *testing.T) {
	path := t.TempDir()

	_, err := run(t, "", "--path", path, "count")
	assert.ErrorContains(t, err, "no collection given")

	_, err = run(t, "", "--path", path, "-c", "missing", "count")
	assert.ErrorIs(t, err, docgo.ErrCollectionNotFound)

	mustRun(t, "", "--path", path, "create", "people")
	_, err = run(t, "", "--path", path, "create", "people")
	assert.ErrorIs(t, err, docgo.ErrCollectionExists)

	_, err = run(t, "", "--path", path, "-c", "people", "--codec", "xml", "count")
	assert.ErrorContains(t, err, "unknown codec")

	_, err = run(t, "", "--path", path, "-c", "people", "find", "--where", "city=x", "city:x")
	assert.ErrorContains(t, err, "not both")

	_, err = run(t, "", "--path", path, "-c", "people", "find", `"unterminated`)
	assert.Error(t, err)

	_, err = run(t, "", "--path", path, "-c", "people", "delete")
	assert.ErrorContains(t, err, "exactly one")

	_, err = run(t, "", "--path", path, "-c", "people", "export", "--to", "ftp")
	assert.ErrorContains(t, err, "unknown export target")

	_, err = run(t, "", "--path", path, "-c", "people", "export", "--to", "dynamodb")
	assert.ErrorContains(t, err, "--table is required")
}

func TestCLI_ConfigFile(t *testing.T) {
	path := t.TempDir()
	cfg := filepath.Join(t.TempDir(), "docgo.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("path: "+path+"\ncollection: notes\noutput: yaml\n"), 0o644))
	t.Setenv("DOCGO_CONFIG", cfg)

	mustRun(t, "", "create")
	mustRun(t, `[{id: n1, text: hello}]`, "insert")

	out := mustRun(t, "", "get", "n1")
	assert.Contains(t, out, "text: hello")
}

func TestCLI_Environment(t *testing.T) {
	path := t.TempDir()
	t.Setenv("DOCGO_PATH", path)
	t.Setenv("DOCGO_COLLECTION", "env")

	mustRun(t, "", "create")
	assert.True(t, docgo.HasCollection("env", path))
}

func TestReadDocuments(t *testing.T) {
	docs, err := readDocuments(strings.NewReader(`[{"id": "a", "n": 1}, {"id": "b"}]`), "")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	id, ok := docs[0].ID()
	assert.True(t, ok)
	assert.Equal(t, "a", id)

	_, err = readDocuments(strings.NewReader(`[1, 2]`), "")
	assert.Error(t, err)

	_, err = readDocuments(strings.NewReader(`plain`), "")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "docs.yaml")
	require.NoError(t, os.WriteFile(file, []byte("id: x\n"), 0o644))
	docs, err = readDocuments(strings.NewReader(""), file)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestParseWhere(t *testing.T) {
	spec, err := parseWhere([]string{"city=Berlin", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, "Berlin", spec["city"].S)
	assert.Equal(t, "a=b", spec["note"].S)

	_, err = parseWhere([]string{"=x"})
	assert.Error(t, err)
	_, err = parseWhere([]string{"city"})
	assert.Error(t, err)
}

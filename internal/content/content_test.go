package content

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/question"
)

const yamlComponent = `
id: DEMO
name: Demo
items:
  - id: q1
    type: single
    stem: Pick one
    options: [a, b]
  - id: q2
    type: likert
    stem: Agree?
    scale: 5
`

const jsonComponent = `{
  "id": "JS",
  "name": "Json",
  "items": [{"id": "q1", "type": "multi", "stem": "Pick", "options": ["x", "y"], "maxSelect": 2}]
}`

func TestDirSourceLoadsYAMLAndJSON(t *testing.T) {
	src := NewFSSource(fstest.MapFS{
		"DEMO.yaml": {Data: []byte(yamlComponent)},
		"JS.json":   {Data: []byte(jsonComponent)},
	})
	ctx := context.Background()

	demo, err := src.FetchComponent(ctx, "DEMO")
	require.NoError(t, err)
	assert.Equal(t, "Demo", demo.Name)
	require.Len(t, demo.Items, 2)
	require.NotNil(t, demo.Items[1].Scale)
	assert.Equal(t, 1, demo.Items[1].Scale.Min)
	assert.Equal(t, 5, demo.Items[1].Scale.Max)

	js, err := src.FetchComponent(ctx, "JS")
	require.NoError(t, err)
	assert.Equal(t, question.TypeMulti, js.Items[0].Type)
	assert.Equal(t, 2, js.Items[0].MaxSelect)

	ids, err := src.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"DEMO", "JS"}, ids)
}

func TestDirSourceMissingIsNotFound(t *testing.T) {
	src := NewFSSource(fstest.MapFS{})
	_, err := src.FetchComponent(context.Background(), "NOPE")
	assert.True(t, apperr.IsNotFound(err))

	_, err = src.FetchComponent(context.Background(), "../etc/passwd")
	assert.True(t, apperr.IsNotFound(err))
}

func TestDecodeRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", `{"id":"X","items":[{"id":"q","type":"single","stem":"s"}]}`},
		{"no items", `{"id":"X","name":"X","items":[]}`},
		{"unknown type", `{"id":"X","name":"X","items":[{"id":"q","type":"essay","stem":"s"}]}`},
		{"negative timer", `{"id":"X","name":"X","items":[{"id":"q","type":"single","stem":"s","timerSec":-1}]}`},
		{"scale of one", `{"id":"X","name":"X","items":[{"id":"q","type":"likert","stem":"s","scale":1}]}`},
		{"duplicate item ids", `{"id":"X","name":"X","items":[{"id":"q","type":"single","stem":"s"},{"id":"q","type":"single","stem":"t"}]}`},
		{"not a document", `[unclosed`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestDecodeKeepsMalformedItemsSkippable(t *testing.T) {
	comp, err := Decode([]byte(`
id: BROKEN
name: Broken
items:
  - id: q1
    type: single
    stem: No options were authored
`))
	require.NoError(t, err)
	require.Len(t, comp.Items, 1)
	assert.Error(t, question.CheckConfig(&comp.Items[0]))
	assert.True(t, question.Skippable(&comp.Items[0]))
}

func TestDirSourceRejectsMismatchedID(t *testing.T) {
	src := NewFSSource(fstest.MapFS{"OTHER.yaml": {Data: []byte(yamlComponent)}})
	_, err := src.FetchComponent(context.Background(), "OTHER")
	assert.ErrorContains(t, err, `declares id "DEMO"`)
}

func TestBuiltinComponentsAreWellFormed(t *testing.T) {
	src := Builtin()
	for _, id := range []string{"FLAT", "ASP", "VAL", "MS"} {
		comp, err := src.FetchComponent(context.Background(), id)
		require.NoError(t, err, id)
		for i := range comp.Items {
			assert.NoError(t, question.CheckConfig(&comp.Items[i]), "%s/%s", id, comp.Items[i].ID)
		}
	}
}

func TestChainPrefersEarlierSources(t *testing.T) {
	override := &question.Component{ID: "FLAT", Name: "Override", Items: []question.Question{{ID: "x", Type: question.TypeSingle, Options: []string{"a"}}}}
	src, err := New(Config{Builtin: true})
	require.NoError(t, err)
	chain := Chain{NewMemorySource(override), src}

	comp, err := chain.FetchComponent(context.Background(), "FLAT")
	require.NoError(t, err)
	assert.Equal(t, "Override", comp.Name)

	comp, err = chain.FetchComponent(context.Background(), "MS")
	require.NoError(t, err)
	assert.Equal(t, "Mindset", comp.Name)

	_, err = chain.FetchComponent(context.Background(), "NOPE")
	assert.True(t, apperr.IsNotFound(err))
}

func TestNewWithoutSources(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestMemorySourceReturnsCopies(t *testing.T) {
	orig := &question.Component{ID: "M", Name: "M", Items: []question.Question{{ID: "a"}}}
	src := NewMemorySource(orig)
	got, err := src.FetchComponent(context.Background(), "M")
	require.NoError(t, err)
	got.Items[0].ID = "changed"
	assert.Equal(t, "a", orig.Items[0].ID)
}

func TestCatalogListsEveryComponent(t *testing.T) {
	src, err := New(Config{Builtin: true})
	require.NoError(t, err)
	chain := Chain{NewMemorySource(&question.Component{ID: "EXTRA", Name: "Extra", Items: []question.Question{{ID: "a"}}}), src}

	comps, err := Catalog(context.Background(), chain)
	require.NoError(t, err)
	var ids []string
	for _, c := range comps {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{"EXTRA", "FLAT", "ASP", "VAL", "MS"}, ids)
}

func TestCatalogReportsBrokenFiles(t *testing.T) {
	src := NewFSSource(fstest.MapFS{
		"DEMO.yaml": {Data: []byte(yamlComponent)},
		"BAD.yaml":  {Data: []byte(`{"id":"BAD"}`)},
	})
	comps, err := Catalog(context.Background(), src)
	assert.Error(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, "DEMO", comps[0].ID)
}

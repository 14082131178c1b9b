package merge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmartEmptyListGuard(t *testing.T) {
	target := map[string]any{"tags": []any{"a", "b"}}
	Smart(target, map[string]any{"tags": []any{}})
	assert.Equal(t, []any{"a", "b"}, target["tags"])

	Smart(target, map[string]any{"tags": []any{"c"}})
	assert.Equal(t, []any{"c"}, target["tags"])
}

func TestSmartEmptyListIntoMissing(t *testing.T) {
	target := map[string]any{}
	Smart(target, map[string]any{"tags": []any{}})
	assert.Equal(t, []any{}, target["tags"])
}

func TestSmartNull(t *testing.T) {
	target := map[string]any{"note": "hello"}
	Smart(target, map[string]any{"note": nil})
	assert.Equal(t, "hello", target["note"])

	Smart(target, map[string]any{"note": "bye"})
	assert.Equal(t, "bye", target["note"])

	target = map[string]any{}
	Smart(target, map[string]any{"note": nil})
	v, ok := target["note"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestSmartRecords(t *testing.T) {
	target := map[string]any{
		"assignee": map[string]any{"id": "u1", "name": "Ann"},
		"location": "Berlin",
		"keep":     1,
	}
	Smart(target, map[string]any{
		"assignee": map[string]any{"name": "Anna", "email": nil},
		"location": map[string]any{"city": "Lisbon"},
		"extra":    map[string]any{"x": true},
	})

	assert.Equal(t, map[string]any{"id": "u1", "name": "Anna", "email": nil}, target["assignee"])
	assert.Equal(t, map[string]any{"city": "Lisbon"}, target["location"], "wrong-shaped target is replaced by a record")
	assert.Equal(t, map[string]any{"x": true}, target["extra"])
	assert.Equal(t, 1, target["keep"], "target-only keys are untouched")
}

type doc struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Points   int      `json:"points"`
	Comments []string `json:"comments"`
	Note     *string  `json:"note"`
	Local    bool     `json:"local"`
}

func TestIntoKeepsPointerAndRicherData(t *testing.T) {
	note := "hello"
	d := &doc{ID: "t1", Status: "IN_PROGRESS", Points: 10, Comments: []string{"a"}, Note: &note, Local: true}
	same := d

	src, err := Decode([]byte(`{"status":"READY","comments":[],"note":null,"points":12}`))
	require.NoError(t, err)
	require.NoError(t, Into(d, src))

	assert.Same(t, same, d)
	assert.Equal(t, "READY", d.Status)
	assert.Equal(t, 12, d.Points)
	assert.Equal(t, []string{"a"}, d.Comments)
	require.NotNil(t, d.Note)
	assert.Equal(t, "hello", *d.Note)
	assert.True(t, d.Local)
}

type entry struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Link   string  `json:"link"`
	Status string  `json:"status"`
	Author *string `json:"author"`
}

type entryDoc struct {
	Files    []entry `json:"files"`
	Comments []entry `json:"comments"`
}

func TestIntoReplacedListDropsOldEntries(t *testing.T) {
	author := "u1"
	d := &entryDoc{
		Files:    []entry{{ID: "f1", Name: "old.pdf", Link: "/files/f1", Status: "approved"}},
		Comments: []entry{{ID: "c1", Name: "first", Author: &author}},
	}
	same := d

	src, err := Decode([]byte(`{"files":[{"id":"f2","name":"new.pdf"}],"comments":[{"id":"c2","name":"from support"}]}`))
	require.NoError(t, err)
	require.NoError(t, Into(d, src))

	assert.Same(t, same, d)
	assert.Equal(t, []entry{{ID: "f2", Name: "new.pdf"}}, d.Files)
	assert.Equal(t, []entry{{ID: "c2", Name: "from support"}}, d.Comments)
	assert.Nil(t, d.Comments[0].Author)
}

func TestIntoRejectsNonPointer(t *testing.T) {
	assert.Error(t, Into(doc{}, map[string]any{}))
}

func TestDecodeKeepsIntegers(t *testing.T) {
	m, err := Decode([]byte(`{"n": 9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), m["n"])

	m, err = Decode([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, m)
}

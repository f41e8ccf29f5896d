package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/schema"
)

func TestRows(t *testing.T) {
	rows := Rows([]string{"id", "name"}, []any{1, "a"}, []any{2})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["name"] != "a" {
		t.Errorf("unexpected row %v", rows[0])
	}
	if _, ok := rows[1]["name"]; ok {
		t.Errorf("expected no name in %v", rows[1])
	}
	if got := Column(rows, "id"); got[0] != 1 || got[1] != 2 {
		t.Errorf("unexpected column %v", got)
	}
}

func TestSchema(t *testing.T) {
	s := Schema("id:integer", "name")
	if got := strings.Join(s.FieldNames(), ","); got != "id,name" {
		t.Errorf("unexpected fields %s", got)
	}
	f, _ := s.Field("name")
	if f.Type != schema.TypeString {
		t.Errorf("expected string, got %s", f.Type)
	}
	if r := Resource("r", "x:boolean"); r.Name != "r" || r.Schema.Len() != 1 {
		t.Errorf("unexpected resource %+v", r)
	}
}

func TestSchemaPanicsOnUnknownType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Schema("x:float")
}

func TestStorage(t *testing.T) {
	h := T(t)
	st := h.Storage()
	if err := st.Upload(h.Context(), "a.txt", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	ok, err := st.Exists(context.Background(), "a.txt")
	if err != nil || !ok {
		t.Errorf("expected file to exist, err=%v", err)
	}
}

func TestResultsAndOpen(t *testing.T) {
	h := T(t)
	f := Flow(flow.SeedResource(Resource("r", "n:integer"), Rows([]string{"n"}, []any{"1"}, []any{"2"})))
	res := h.Results(f)
	if len(res.Data[0]) != 2 || res.Data[0][1]["n"] != int64(2) {
		t.Errorf("unexpected data %v", res.Data)
	}

	s := h.Open(f)
	it, err := s.Resource(0)
	if err != nil {
		t.Fatal(err)
	}
	if rows := h.Collect(it); len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
}

func TestCheckpointStore(t *testing.T) {
	h := T(t)
	store := h.CheckpointStore()
	ok, err := store.Exists(h.Context(), "missing")
	if err != nil || ok {
		t.Errorf("expected no record, ok=%v err=%v", ok, err)
	}
}

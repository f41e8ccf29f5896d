package sink

import (
	"encoding/csv"
	"io"

	json "github.com/goccy/go-json"

	"github.com/kbukum/dataflow/cast"
	"github.com/kbukum/dataflow/schema"
)

// rowEncoder writes the rows of one resource in a file format. Only the
// schema's fields are written, in schema order.
type rowEncoder interface {
	Begin() error
	Encode(row schema.Row) error
	End() error
}

func newEncoder(format string, w io.Writer, sch *schema.Schema, c *cast.Caster) rowEncoder {
	if format == FormatJSON {
		return &jsonEncoder{w: w, sch: sch, caster: c}
	}
	return &csvEncoder{w: csv.NewWriter(w), sch: sch, caster: c, record: make([]string, sch.Len())}
}

type csvEncoder struct {
	w      *csv.Writer
	sch    *schema.Schema
	caster *cast.Caster
	record []string
}

func (e *csvEncoder) Begin() error {
	return e.w.Write(e.sch.FieldNames())
}

func (e *csvEncoder) Encode(row schema.Row) error {
	for i := 0; i < e.sch.Len(); i++ {
		f := e.sch.At(i)
		s, err := e.caster.Text(*f, row[f.Name])
		if err != nil {
			return err
		}
		e.record[i] = s
	}
	return e.w.Write(e.record)
}

func (e *csvEncoder) End() error {
	e.w.Flush()
	return e.w.Error()
}

// jsonEncoder writes a JSON array with one object per line.
type jsonEncoder struct {
	w      io.Writer
	sch    *schema.Schema
	caster *cast.Caster
	n      int
}

func (e *jsonEncoder) Begin() error {
	_, err := io.WriteString(e.w, "[")
	return err
}

func (e *jsonEncoder) Encode(row schema.Row) error {
	out := make(map[string]any, e.sch.Len())
	for i := 0; i < e.sch.Len(); i++ {
		f := e.sch.At(i)
		v, err := e.caster.Serialize(*f, row[f.Name])
		if err != nil {
			return err
		}
		out[f.Name] = v
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	sep := ",\n"
	if e.n == 0 {
		sep = "\n"
	}
	e.n++
	if _, err := io.WriteString(e.w, sep); err != nil {
		return err
	}
	_, err = e.w.Write(data)
	return err
}

func (e *jsonEncoder) End() error {
	_, err := io.WriteString(e.w, "\n]\n")
	return err
}

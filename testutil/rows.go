package testutil

import (
	"fmt"
	"strings"

	"github.com/kbukum/dataflow/schema"
)

// Rows builds rows from a header and positional values. Missing trailing
// values are left out of the row.
func Rows(header []string, values ...[]any) []schema.Row {
	out := make([]schema.Row, len(values))
	for i, vals := range values {
		row := make(schema.Row, len(header))
		for j, name := range header {
			if j < len(vals) {
				row[name] = vals[j]
			}
		}
		out[i] = row
	}
	return out
}

// Column returns the values of field name across rows.
func Column(rows []schema.Row, name string) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row[name]
	}
	return out
}

// Schema builds a schema from "name:type" specs. A spec without a type is a
// string field. It panics on invalid specs.
func Schema(specs ...string) *schema.Schema {
	fields := make([]schema.Field, len(specs))
	for i, spec := range specs {
		name, typ, ok := strings.Cut(spec, ":")
		if !ok {
			typ = string(schema.TypeString)
		}
		ft := schema.FieldType(typ)
		if !ft.Valid() {
			panic(fmt.Sprintf("testutil: unknown field type %q", typ))
		}
		fields[i] = schema.NewField(name, ft)
	}
	return schema.MustSchema(fields...)
}

// Resource builds a resource from "name:type" specs.
func Resource(name string, specs ...string) *schema.Resource {
	return schema.NewResource(name, Schema(specs...))
}

package schema

import (
	"strconv"

	"github.com/kbukum/dataflow/pipeline"
)

// Row maps field names to values. Field order comes from the schema.
type Row map[string]any

// RowIterator is a single-pass stream of rows.
type RowIterator = pipeline.Iterator[Row]

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Values returns the row's values in schema order.
func (r Row) Values(s *Schema) []any {
	out := make([]any, s.Len())
	for i := range out {
		out[i] = r[s.At(i).Name]
	}
	return out
}

// RowFromValues zips values with the schema's field names. Extra values are
// ignored; missing ones are nil.
func RowFromValues(s *Schema, values ...any) Row {
	row := make(Row, s.Len())
	for i := 0; i < s.Len(); i++ {
		if i < len(values) {
			row[s.At(i).Name] = values[i]
		} else {
			row[s.At(i).Name] = nil
		}
	}
	return row
}

// GeoPoint is a longitude/latitude pair.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// String renders the point as "lon,lat".
func (g GeoPoint) String() string {
	return strconv.FormatFloat(g.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(g.Lat, 'f', -1, 64)
}

package cast

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
)

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func TestCastInteger(t *testing.T) {
	c := Default()
	f := schema.NewField("a", schema.TypeInteger)

	v, err := c.Cast(f, "12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	_, err = c.Cast(f, "x")
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeCast, appErr.Code)
	field, _ := appErr.Detail(errors.DetailField)
	assert.Equal(t, "a", field)
	constraint, _ := appErr.Detail(errors.DetailConstraint)
	assert.Equal(t, "type", constraint)
}

func TestCastIntegerNative(t *testing.T) {
	c := Default()
	f := schema.NewField("a", schema.TypeInteger)

	for _, in := range []any{int(7), int32(7), uint16(7), float64(7), json.Number("7"), decimal.NewFromInt(7)} {
		v, err := c.Cast(f, in)
		require.NoError(t, err, "%T", in)
		assert.Equal(t, int64(7), v, "%T", in)
	}

	_, err := c.Cast(f, 7.5)
	assert.Error(t, err)
	_, err = c.Cast(f, true)
	assert.Error(t, err)
}

func TestCastNumber(t *testing.T) {
	c := Default()

	f := schema.NewField("price", schema.TypeNumber)
	v, err := c.Cast(f, "10.50")
	require.NoError(t, err)
	assert.Equal(t, "10.5", v.(decimal.Decimal).String())

	f.GroupChar = ","
	v, err = c.Cast(f, "1,234.5")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1234.5").Equal(v.(decimal.Decimal)))

	eu := schema.NewField("price", schema.TypeNumber)
	eu.GroupChar = "."
	eu.DecimalChar = ","
	v, err = c.Cast(eu, "1.234,5")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1234.5").Equal(v.(decimal.Decimal)))

	money := schema.NewField("price", schema.TypeNumber)
	money.BareNumber = boolPtr(false)
	v, err = c.Cast(money, "$95.00%")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(95).Equal(v.(decimal.Decimal)))

	_, err = c.Cast(schema.NewField("price", schema.TypeNumber), "$95")
	assert.Error(t, err)
}

func TestCastBoolean(t *testing.T) {
	c := Default()
	f := schema.NewField("flag", schema.TypeBoolean)

	v, err := c.Cast(f, "True")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = c.Cast(f, "0")
	require.NoError(t, err)
	assert.Equal(t, false, v)

	f.TrueValues = []string{"yes"}
	f.FalseValues = []string{"no"}
	v, err = c.Cast(f, "yes")
	require.NoError(t, err)
	assert.Equal(t, true, v)
	_, err = c.Cast(f, "true")
	assert.Error(t, err)
}

func TestCastTemporal(t *testing.T) {
	c := Default()

	v, err := c.Cast(schema.NewField("d", schema.TypeDate), "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), v)

	custom := schema.NewField("d", schema.TypeDate)
	custom.Format = "%d/%m/%Y"
	v, err = c.Cast(custom, "01/03/2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), v)

	anyDate := schema.NewField("d", schema.TypeDate)
	anyDate.Format = schema.FormatAny
	v, err = c.Cast(anyDate, "Mar 1, 2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), v)

	_, err = c.Cast(schema.NewField("d", schema.TypeDate), "2024-13-01")
	assert.Error(t, err)

	v, err = c.Cast(schema.NewField("ts", schema.TypeDatetime), "2024-03-01T10:20:30Z")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC).Equal(v.(time.Time)))

	v, err = c.Cast(schema.NewField("ts", schema.TypeDatetime), "2024-03-01T10:20:30")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, v.(time.Time).Location())

	v, err = c.Cast(schema.NewField("t", schema.TypeTime), "08:15:00")
	require.NoError(t, err)
	assert.Equal(t, 8, v.(time.Time).Hour())
	assert.Equal(t, 15, v.(time.Time).Minute())

	v, err = c.Cast(schema.NewField("y", schema.TypeYear), "1999")
	require.NoError(t, err)
	assert.Equal(t, int64(1999), v)
	_, err = c.Cast(schema.NewField("y", schema.TypeYear), "99")
	assert.Error(t, err)
}

func TestCastCasterDateFormat(t *testing.T) {
	c := New(Options{DateFormat: "%d.%m.%Y"})
	v, err := c.Cast(schema.NewField("d", schema.TypeDate), "05.06.2021")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 6, 5, 0, 0, 0, 0, time.UTC), v)
}

func TestCastStructured(t *testing.T) {
	c := Default()

	v, err := c.Cast(schema.NewField("tags", schema.TypeArray), `["a", 1]`)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", int64(1)}, v)

	v, err = c.Cast(schema.NewField("meta", schema.TypeObject), `{"k": true}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": true}, v)

	_, err = c.Cast(schema.NewField("meta", schema.TypeObject), `[1]`)
	assert.Error(t, err)
	_, err = c.Cast(schema.NewField("tags", schema.TypeArray), `[1] [2]`)
	assert.Error(t, err)

	v, err = c.Cast(schema.NewField("loc", schema.TypeGeopoint), "13.4, 52.5")
	require.NoError(t, err)
	assert.Equal(t, schema.GeoPoint{Lon: 13.4, Lat: 52.5}, v)

	arr := schema.NewField("loc", schema.TypeGeopoint)
	arr.Format = FormatArray
	v, err = c.Cast(arr, "[13.4, 52.5]")
	require.NoError(t, err)
	assert.Equal(t, schema.GeoPoint{Lon: 13.4, Lat: 52.5}, v)

	_, err = c.Cast(schema.NewField("loc", schema.TypeGeopoint), "200,10")
	assert.Error(t, err)
}

func TestCastStringFormats(t *testing.T) {
	c := Default()

	email := schema.NewField("email", schema.TypeString)
	email.Format = FormatEmail
	_, err := c.Cast(email, "someone@example.com")
	assert.NoError(t, err)
	_, err = c.Cast(email, "nobody")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCast))

	id := schema.NewField("id", schema.TypeString)
	id.Format = FormatUUID
	_, err = c.Cast(id, "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.NoError(t, err)
	_, err = c.Cast(id, "6ba7b810")
	assert.Error(t, err)

	_, err = c.Cast(schema.NewField("name", schema.TypeString), 12)
	assert.Error(t, err)
}

func TestCastMissingAndRequired(t *testing.T) {
	c := Default()
	f := schema.NewField("a", schema.TypeInteger)

	v, err := c.Cast(f, "")
	require.NoError(t, err)
	assert.Nil(t, v)

	f.Constraints = &schema.Constraints{Required: true}
	_, err = c.Cast(f, nil)
	require.Error(t, err)
	appErr, _ := errors.AsAppError(err)
	constraint, _ := appErr.Detail(errors.DetailConstraint)
	assert.Equal(t, "required", constraint)
}

func TestCastConstraints(t *testing.T) {
	c := Default()

	tests := []struct {
		name       string
		typ        schema.FieldType
		cons       schema.Constraints
		value      any
		constraint string
	}{
		{"enum ok", schema.TypeInteger, schema.Constraints{Enum: []any{"1", "2"}}, "2", ""},
		{"enum miss", schema.TypeInteger, schema.Constraints{Enum: []any{"1", "2"}}, "3", "enum"},
		{"pattern ok", schema.TypeString, schema.Constraints{Pattern: "[a-z]+"}, "abc", ""},
		{"pattern anchored", schema.TypeString, schema.Constraints{Pattern: "[a-z]+"}, "abc1", "pattern"},
		{"minimum", schema.TypeInteger, schema.Constraints{Minimum: 10}, "9", "minimum"},
		{"maximum", schema.TypeNumber, schema.Constraints{Maximum: "1.5"}, "1.6", "maximum"},
		{"maximum ok", schema.TypeNumber, schema.Constraints{Maximum: "1.5"}, "1.50", ""},
		{"date minimum", schema.TypeDate, schema.Constraints{Minimum: "2020-01-01"}, "2019-12-31", "minimum"},
		{"minLength", schema.TypeString, schema.Constraints{MinLength: intPtr(3)}, "ab", "minLength"},
		{"maxLength array", schema.TypeArray, schema.Constraints{MaxLength: intPtr(1)}, "[1,2]", "maxLength"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := schema.NewField("f", tc.typ)
			cons := tc.cons
			f.Constraints = &cons
			_, err := c.Cast(f, tc.value)
			if tc.constraint == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			got, _ := appErr.Detail(errors.DetailConstraint)
			assert.Equal(t, tc.constraint, got)
		})
	}
}

func TestCastDeterministic(t *testing.T) {
	c := Default()
	fields := []schema.Field{
		schema.NewField("n", schema.TypeNumber),
		schema.NewField("d", schema.TypeDatetime),
		schema.NewField("i", schema.TypeInteger),
	}
	for _, f := range fields {
		for _, raw := range []any{"1.25", "2024-01-02T03:04:05+02:00", "abc", ""} {
			v1, err1 := c.Cast(f, raw)
			v2, err2 := c.Cast(f, raw)
			assert.Equal(t, v1, v2)
			if err1 == nil {
				assert.NoError(t, err2)
				continue
			}
			require.Error(t, err2)
			assert.Equal(t, err1.Error(), err2.Error())
		}
	}
}

func TestCastRow(t *testing.T) {
	c := Default()
	s := schema.MustSchema(
		schema.NewField("id", schema.TypeInteger),
		schema.NewField("name", schema.TypeString),
	)
	require.NoError(t, s.SetMissingValues([]string{"", "NA"}))

	row, err := c.CastRow(s, schema.Row{"id": "NA", "name": "x", "extra": 1})
	require.NoError(t, err)
	assert.Equal(t, schema.Row{"id": nil, "name": "x"}, row)
}

func TestInfer(t *testing.T) {
	c := Default()
	rows := []schema.Row{
		{"id": "1", "price": "1.5", "ok": "true", "day": "2024-01-01", "note": ""},
		{"id": "2", "price": "3", "ok": "false", "day": "2024-01-02", "tags": `["a"]`, "note": ""},
		{"id": "", "price": "x", "ok": "FALSE", "day": "2024-01-03", "tags": `[]`, "note": ""},
	}
	s := c.Infer(rows)

	assert.Equal(t, []string{"day", "id", "note", "ok", "price", "tags"}, s.FieldNames())
	types := map[string]schema.FieldType{}
	for _, f := range s.Fields() {
		types[f.Name] = f.EffectiveType()
	}
	assert.Equal(t, map[string]schema.FieldType{
		"day":   schema.TypeDate,
		"id":    schema.TypeInteger,
		"note":  schema.TypeString,
		"ok":    schema.TypeBoolean,
		"price": schema.TypeString,
		"tags":  schema.TypeArray,
	}, types)
}

func TestInferNonStringFallback(t *testing.T) {
	s := Default().Infer([]schema.Row{{"v": true}, {"v": 1.5}})
	f, ok := s.Field("v")
	require.True(t, ok)
	assert.Equal(t, schema.TypeAny, f.Type)
}

func TestInferStream(t *testing.T) {
	c := New(Options{InferSampleSize: 2})
	src := pipeline.FromSlice([]schema.Row{{"a": "1"}, {"a": "2"}, {"a": "x"}})

	s, it, err := c.InferStream(context.Background(), src)
	require.NoError(t, err)
	f, _ := s.Field("a")
	assert.Equal(t, schema.TypeInteger, f.Type)

	rows, err := pipeline.Collect(context.Background(), it)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSerializeRestore(t *testing.T) {
	c := Default()
	s := schema.MustSchema(
		schema.NewField("i", schema.TypeInteger),
		schema.NewField("n", schema.TypeNumber),
		schema.NewField("b", schema.TypeBoolean),
		schema.NewField("d", schema.TypeDate),
		schema.NewField("dt", schema.TypeDatetime),
		schema.NewField("t", schema.TypeTime),
		schema.NewField("g", schema.TypeGeopoint),
		schema.NewField("o", schema.TypeObject),
	)
	dayField := schema.NewField("d", schema.TypeDate)
	dayField.Format = "%d/%m/%Y"
	raw := schema.Row{
		"i": "42", "n": "1.50", "b": "1", "d": "2024-02-29",
		"dt": "2024-02-29T12:00:00.5+01:00", "t": "23:59:01",
		"g": "1.5,2.5", "o": `{"x":1}`,
	}
	typed, err := c.CastRow(s, raw)
	require.NoError(t, err)

	for _, f := range s.Fields() {
		stored, err := c.Serialize(f, typed[f.Name])
		require.NoError(t, err, f.Name)
		text, err := c.Text(f, typed[f.Name])
		require.NoError(t, err, f.Name)

		fromValue, err := c.Restore(f, stored)
		require.NoError(t, err, f.Name)
		fromText, err := c.Restore(f, text)
		require.NoError(t, err, f.Name)

		switch want := typed[f.Name].(type) {
		case decimal.Decimal:
			assert.Equal(t, want.String(), fromText.(decimal.Decimal).String())
			assert.Equal(t, "1.50", text)
		case time.Time:
			assert.True(t, want.Equal(fromValue.(time.Time)), f.Name)
			assert.True(t, want.Equal(fromText.(time.Time)), f.Name)
		default:
			assert.Equal(t, want, fromValue, f.Name)
			assert.Equal(t, want, fromText, f.Name)
		}
	}

	stored, err := c.Serialize(dayField, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", stored)
}

func TestStorageSchema(t *testing.T) {
	d := schema.NewField("d", schema.TypeDate)
	d.Format = "%d/%m/%Y"
	b := schema.NewField("b", schema.TypeBoolean)
	b.TrueValues = []string{"yes"}
	e := schema.NewField("e", schema.TypeString)
	e.Format = FormatEmail
	s := schema.MustSchema(d, b, e)

	out := StorageSchema(s)
	fd, _ := out.Field("d")
	fb, _ := out.Field("b")
	fe, _ := out.Field("e")
	assert.Empty(t, fd.Format)
	assert.Equal(t, []string{"true"}, fb.TrueValues)
	assert.Equal(t, FormatEmail, fe.Format)

	orig, _ := s.Field("d")
	assert.Equal(t, "%d/%m/%Y", orig.Format)
}

func TestOptionsValidate(t *testing.T) {
	o := Options{}
	o.ApplyDefaults()
	assert.NoError(t, o.Validate())

	o.GroupChar = "."
	assert.Error(t, o.Validate())

	bad := Options{TrueValues: []string{"y"}, FalseValues: []string{"y"}}
	bad.ApplyDefaults()
	assert.Error(t, bad.Validate())
}

func TestCompare(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"nil first", nil, int64(1), -1},
		{"nil last", "a", nil, 1},
		{"both nil", nil, nil, 0},
		{"integers", int64(2), int64(10), -1},
		{"decimals", decimal.RequireFromString("1.50"), decimal.RequireFromString("1.5"), 0},
		{"times", day(3), day(2), 1},
		{"strings", "b", "a", 1},
		{"booleans", false, true, -1},
		{"mixed types by text", int64(2), "10", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compare(tc.a, tc.b))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(decimal.RequireFromString("2.0"), decimal.NewFromInt(2)))
	assert.True(t, Equal([]any{"a"}, []any{"a"}))
	assert.False(t, Equal(int64(1), "1"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", int(3), int64(3)},
		{"json integer", json.Number("12"), int64(12)},
		{"json fraction", json.Number("1.25"), decimal.RequireFromString("1.25")},
		{"json exponent", json.Number("1e2"), decimal.RequireFromString("100.0")},
		{"float", 2.0, decimal.RequireFromString("2.0")},
		{"whole decimal", decimal.NewFromInt(5), decimal.RequireFromString("5.0")},
		{"nested", map[string]any{"a": []any{uint8(1), json.Number("2")}}, map[string]any{"a": []any{int64(1), int64(2)}}},
		{"typed slice", []string{"x", "y"}, []any{"x", "y"}},
		{"time", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02T00:00:00Z"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Normalize(tc.in)
			require.True(t, ok)
			if d, isDec := tc.want.(decimal.Decimal); isDec {
				assert.Equal(t, d.String(), got.(decimal.Decimal).String())
				assert.Equal(t, d.Exponent(), got.(decimal.Decimal).Exponent())
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}

	_, ok := Normalize(make(chan int))
	assert.False(t, ok)
}

func TestStructuredRoundTrip(t *testing.T) {
	c := Default()
	for _, typ := range []schema.FieldType{schema.TypeArray, schema.TypeObject, schema.TypeAny} {
		f := schema.NewField("v", typ)
		var raw any = []any{int64(1), 2.5, "x", map[string]any{"k": int16(4)}}
		if typ == schema.TypeObject {
			raw = map[string]any{"n": int64(1), "d": decimal.RequireFromString("0.10"), "l": []any{true}}
		}
		native, err := c.Cast(f, raw)
		require.NoError(t, err, typ)

		stored, err := c.Serialize(f, native)
		require.NoError(t, err, typ)
		data, err := json.Marshal(stored)
		require.NoError(t, err, typ)
		decoded, err := DecodeJSON(string(data))
		require.NoError(t, err, typ)

		restored, err := c.Restore(f, decoded)
		require.NoError(t, err, typ)
		assert.Equal(t, native, restored, typ)
	}
}

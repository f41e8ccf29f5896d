package schema

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/dataflow/errors"
)

func TestNewSchemaRejectsDuplicates(t *testing.T) {
	_, err := NewSchema(NewField("id", TypeInteger), NewField("id", TypeString))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema))
}

func TestSchemaFieldOperations(t *testing.T) {
	s := MustSchema(NewField("a", TypeString), NewField("b", TypeInteger))

	require.NoError(t, s.AddField(NewField("c", TypeBoolean)))
	require.NoError(t, s.InsertField(0, NewField("z", TypeString)))
	assert.Equal(t, []string{"z", "a", "b", "c"}, s.FieldNames())
	assert.Equal(t, 2, s.Index("b"))

	err := s.AddField(NewField("a", TypeString))
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema))

	removed, err := s.RemoveField("z")
	require.NoError(t, err)
	assert.Equal(t, "z", removed.Name)
	assert.Equal(t, 0, s.Index("a"))

	_, err = s.RemoveField("nope")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema))

	require.NoError(t, s.ReorderFields([]string{"c", "a"}))
	assert.Equal(t, []string{"c", "a", "b"}, s.FieldNames())
	assert.Error(t, s.ReorderFields([]string{"missing"}))
	assert.Error(t, s.ReorderFields([]string{"a", "a"}))
}

func TestSchemaUpdateField(t *testing.T) {
	s := MustSchema(NewField("a", TypeString), NewField("b", TypeString))
	require.NoError(t, s.SetPrimaryKey("a"))

	require.NoError(t, s.UpdateField("a", func(f *Field) {
		f.Name = "id"
		f.Type = TypeInteger
	}))
	f, ok := s.Field("id")
	require.True(t, ok)
	assert.Equal(t, TypeInteger, f.Type)
	assert.Equal(t, []string{"id"}, s.PrimaryKey())

	err := s.UpdateField("id", func(f *Field) { f.Name = "b" })
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema))
	assert.Error(t, s.UpdateField("zzz", func(*Field) {}))
}

func TestSchemaFieldReturnsCopy(t *testing.T) {
	s := MustSchema(Field{Name: "a", Constraints: &Constraints{Required: true}})
	f, _ := s.Field("a")
	f.Constraints.Required = false
	f.Type = TypeInteger

	again, _ := s.Field("a")
	assert.True(t, again.Required())
	assert.Equal(t, TypeString, again.EffectiveType())
}

func TestFrozenSchemaRejectsMutation(t *testing.T) {
	s := MustSchema(NewField("a", TypeString))
	s.Freeze()
	assert.True(t, s.Frozen())

	for name, err := range map[string]error{
		"add":     s.AddField(NewField("b", TypeString)),
		"update":  s.UpdateField("a", func(f *Field) { f.Type = TypeInteger }),
		"reorder": s.ReorderFields([]string{"a"}),
		"pk":      s.SetPrimaryKey("a"),
		"missing": s.SetMissingValues([]string{"NA"}),
	} {
		assert.True(t, errors.IsCode(err, errors.ErrCodeSchema), name)
	}
	_, err := s.RemoveField("a")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema))

	clone := s.Clone()
	assert.False(t, clone.Frozen())
	assert.NoError(t, clone.AddField(NewField("b", TypeString)))
	assert.Equal(t, 1, s.Len())
}

func TestMissingValuesDefault(t *testing.T) {
	s := MustSchema()
	assert.Equal(t, []string{""}, s.MissingValues())
	require.NoError(t, s.SetMissingValues([]string{"NA", "-"}))
	assert.Equal(t, []string{"NA", "-"}, s.MissingValues())
}

func TestPackageResources(t *testing.T) {
	pkg, err := NewPackage("pkg",
		NewResource("a", nil),
		NewResource("b", MustSchema(NewField("x", TypeInteger))),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, pkg.ResourceNames())

	// adding a resource under an existing name fails and leaves the package unchanged
	err = pkg.AddResource(NewResource("a", nil))
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema))
	assert.Equal(t, 2, pkg.Len())

	require.NoError(t, pkg.InsertResource(0, NewResource("first", nil)))
	assert.Equal(t, 0, pkg.Index("first"))

	r, err := pkg.RemoveResource("a")
	require.NoError(t, err)
	assert.Equal(t, "a", r.Name)
	_, err = pkg.RemoveResource("a")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema))

	require.NoError(t, pkg.RenameResource("b", "c"))
	_, ok := pkg.Resource("c")
	assert.True(t, ok)
	assert.Error(t, pkg.RenameResource("c", "first"))
}

func TestPackageFreezeAndClone(t *testing.T) {
	pkg, _ := NewPackage("pkg", NewResource("a", MustSchema(NewField("x", TypeString))))
	clone := pkg.Clone()
	pkg.Freeze()

	assert.Error(t, pkg.AddResource(NewResource("b", nil)))
	assert.Error(t, pkg.ResourceAt(0).Schema.AddField(NewField("y", TypeString)))

	require.NoError(t, clone.ResourceAt(0).Schema.AddField(NewField("y", TypeString)))
	assert.Equal(t, 1, pkg.ResourceAt(0).Schema.Len())
}

func TestRenameFieldsSwapsNames(t *testing.T) {
	s := MustSchema(NewField("a", TypeInteger), NewField("b", TypeString), NewField("c", TypeDate))
	require.NoError(t, s.SetPrimaryKey("a"))
	require.NoError(t, s.RenameFields(map[string]string{"a": "b", "b": "a", "zz": "y"}))
	assert.Equal(t, []string{"b", "a", "c"}, s.FieldNames())
	b, _ := s.Field("b")
	assert.Equal(t, TypeInteger, b.Type)
	assert.Equal(t, []string{"b"}, s.PrimaryKey())

	err := s.RenameFields(map[string]string{"a": "c"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema))
	assert.Equal(t, []string{"b", "a", "c"}, s.FieldNames(), "failed rename must not change the schema")
}

func TestValidate(t *testing.T) {
	good := NewResource("res", MustSchema(NewField("a", TypeInteger)))
	assert.NoError(t, good.Validate())

	bad := NewResource("res", MustSchema(Field{Name: "a", Type: "float"}))
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	assert.Error(t, (&Resource{Schema: MustSchema()}).Validate())
}

func TestValidateConstraintsAndKeys(t *testing.T) {
	negative := -1
	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"blank name", Field{Name: "  "}, "name: is required"},
		{"unknown type", Field{Name: "a", Type: "float"}, "fields.a.type: must be one of"},
		{"bad pattern", Field{Name: "a", Constraints: &Constraints{Pattern: "(["}}, "fields.a.constraints.pattern"},
		{"negative length", Field{Name: "a", Constraints: &Constraints{MaxLength: &negative}}, "fields.a.constraints.maxLength"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MustSchema(tt.field).Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	ok := MustSchema(Field{Name: "code", Constraints: &Constraints{Pattern: "^[A-Z]{2}$"}})
	assert.NoError(t, ok.Validate())
	assert.NoError(t, ok.At(0).Validate())

	keyed := MustSchema(NewField("id", TypeInteger), NewField("day", TypeDate))
	require.NoError(t, keyed.SetPrimaryKey("id", "day", "id"))
	err := keyed.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `primaryKey: duplicate value "id"`)
}

func TestDescriptorJSONRoundTrip(t *testing.T) {
	minLen := 2
	s := MustSchema(
		Field{Name: "id", Type: TypeInteger, Constraints: &Constraints{Required: true}},
		Field{Name: "amount", Type: TypeNumber, GroupChar: ",", Metadata: map[string]any{"unit": "EUR"}},
		Field{Name: "code", Constraints: &Constraints{MinLength: &minLen}},
	)
	require.NoError(t, s.SetPrimaryKey("id"))
	require.NoError(t, s.SetMissingValues([]string{}))

	res := NewResource("orders", s)
	res.Path = "orders.csv"
	res.Metadata = map[string]any{"source": "erp"}
	pkg, _ := NewPackage("shop", res)
	pkg.Metadata = map[string]any{"owner": "ops"}

	data, err := json.Marshal(pkg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"primaryKey":["id"]`)
	assert.Contains(t, string(data), `"groupChar":","`)
	assert.Contains(t, string(data), `"unit":"EUR"`)

	var back Package
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "shop", back.Name)
	assert.Equal(t, "ops", back.Metadata["owner"])

	r, ok := back.Resource("orders")
	require.True(t, ok)
	assert.Equal(t, "orders.csv", r.Path)
	assert.Equal(t, "erp", r.Metadata["source"])
	assert.Equal(t, []string{"id", "amount", "code"}, r.Schema.FieldNames())
	assert.Equal(t, []string{"id"}, r.Schema.PrimaryKey())
	assert.Empty(t, r.Schema.MissingValues())

	amount, _ := r.Schema.Field("amount")
	assert.Equal(t, "EUR", amount.Metadata["unit"])
	code, _ := r.Schema.Field("code")
	require.NotNil(t, code.Constraints.MinLength)
	assert.Equal(t, 2, *code.Constraints.MinLength)
	id, _ := r.Schema.Field("id")
	assert.True(t, id.Required())
}

func TestRowHelpers(t *testing.T) {
	s := MustSchema(NewField("a", TypeString), NewField("b", TypeInteger))
	row := RowFromValues(s, "x")
	assert.Equal(t, Row{"a": "x", "b": nil}, row)
	assert.Equal(t, []any{"x", nil}, row.Values(s))

	clone := row.Clone()
	clone["a"] = "y"
	assert.Equal(t, "x", row["a"])

	assert.Equal(t, "13.4,52.5", GeoPoint{Lon: 13.4, Lat: 52.5}.String())
}

func TestFieldTypes(t *testing.T) {
	assert.True(t, TypeGeopoint.Valid())
	assert.False(t, FieldType("float").Valid())
	f := Field{Name: "x"}
	assert.Equal(t, FormatDefault, f.EffectiveFormat())
}

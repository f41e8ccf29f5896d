package steps

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/source"
	"github.com/kbukum/dataflow/testutil"
)

func people() flow.Step {
	return flow.SeedResource(testutil.Resource("people", "id:integer", "name", "age:integer"), testutil.Rows(
		[]string{"id", "name", "age"},
		[]any{"1", "carol", "41"},
		[]any{"2", "alice", ""},
		[]any{"3", "bob", "29"},
	))
}

func cities() flow.Step {
	return source.Load(source.Rows("cities", testutil.Rows([]string{"name", "pop"}, []any{"oslo", "700000"})))
}

func TestSetType(t *testing.T) {
	h := testutil.T(t)
	res := h.Results(testutil.Flow(people(), SetType("age", schema.TypeNumber), SetType("id", schema.TypeString)))

	age, _ := res.Package.ResourceAt(0).Schema.Field("age")
	assert.Equal(t, schema.TypeNumber, age.Type)
	assert.True(t, decimal.NewFromInt(41).Equal(res.Data[0][0]["age"].(decimal.Decimal)))
	assert.Nil(t, res.Data[0][1]["age"])
	assert.Equal(t, []any{"1", "2", "3"}, testutil.Column(res.Data[0], "id"))
}

func TestSetTypeCastError(t *testing.T) {
	_, err := testutil.Flow(people(), SetType("name", schema.TypeInteger)).Results(context.Background())
	require.True(t, errors.IsCode(err, errors.ErrCodeCast), "got %v", err)
	appErr, _ := errors.AsAppError(err)
	step, _ := appErr.Detail(errors.DetailStep)
	assert.Equal(t, 1, step)
}

func TestSetTypeMissingField(t *testing.T) {
	_, err := testutil.Flow(people(), SetType("nope", schema.TypeString)).Open(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema), "got %v", err)
}

func TestAddField(t *testing.T) {
	h := testutil.T(t)
	res := h.Results(testutil.Flow(people(),
		AddField("active", schema.TypeBoolean, WithValue("true"), At(0)),
		AddField("label", schema.TypeString, WithFunc(func(row schema.Row) (any, error) {
			return strings.ToUpper(row["name"].(string)), nil
		})),
	))
	assert.Equal(t, []string{"active", "id", "name", "age", "label"}, res.Package.ResourceAt(0).Schema.FieldNames())
	assert.Equal(t, []any{true, true, true}, testutil.Column(res.Data[0], "active"))
	assert.Equal(t, []any{"CAROL", "ALICE", "BOB"}, testutil.Column(res.Data[0], "label"))
}

// dashIsMissing declares "-" as the only missing value of every resource.
func dashIsMissing() flow.Step {
	return flow.PackageStep(flow.PackageFuncs{
		DescribeFunc: func(_ context.Context, pkg *schema.Package) error {
			for _, res := range pkg.Resources() {
				if err := res.Schema.SetMissingValues([]string{"-"}); err != nil {
					return err
				}
			}
			return nil
		},
		ProcessFunc: positional,
	})
}

func TestFieldStepsUseSchemaMissingValues(t *testing.T) {
	h := testutil.T(t)
	seed := flow.SeedResource(testutil.Resource("scores", "id:integer", "score"), testutil.Rows(
		[]string{"id", "score"},
		[]any{"1", "7"},
		[]any{"2", "-"},
	))
	res := h.Results(testutil.Flow(seed, dashIsMissing(),
		SetType("score", schema.TypeInteger),
		AddField("bonus", schema.TypeInteger, WithValue("-")),
	))
	assert.Equal(t, []any{int64(7), nil}, testutil.Column(res.Data[0], "score"))
	assert.Equal(t, []any{nil, nil}, testutil.Column(res.Data[0], "bonus"))
}

func TestAddFieldRestrictedToResources(t *testing.T) {
	h := testutil.T(t)
	res := h.Results(testutil.Flow(people(), cities(), AddField("country", schema.TypeString, WithValue("no"), Resources("cit.*"))))

	assert.False(t, res.Package.ResourceAt(0).Schema.HasField("country"))
	assert.True(t, res.Package.ResourceAt(1).Schema.HasField("country"))
	assert.Equal(t, []any{"no"}, testutil.Column(res.Data[1], "country"))
	_, ok := res.Data[0][0]["country"]
	assert.False(t, ok)
}

func TestDeleteAndSelectFields(t *testing.T) {
	h := testutil.T(t)
	res := h.Results(testutil.Flow(people(), DeleteFields([]string{"age"})))
	assert.Equal(t, []string{"id", "name"}, res.Package.ResourceAt(0).Schema.FieldNames())
	assert.Equal(t, schema.Row{"id": int64(1), "name": "carol"}, res.Data[0][0])

	res = h.Results(testutil.Flow(people(), SelectFields([]string{"name", "id"})))
	assert.Equal(t, []string{"name", "id"}, res.Package.ResourceAt(0).Schema.FieldNames())
	assert.Equal(t, schema.Row{"id": int64(3), "name": "bob"}, res.Data[0][2])

	_, err := testutil.Flow(people(), DeleteFields([]string{"age", "ghost"})).Open(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema), "got %v", err)
}

func TestRenameFields(t *testing.T) {
	h := testutil.T(t)
	res := h.Results(testutil.Flow(people(), RenameFields(map[string]string{"name": "first_name"})))
	assert.Equal(t, []string{"id", "first_name", "age"}, res.Package.ResourceAt(0).Schema.FieldNames())
	assert.Equal(t, []any{"carol", "alice", "bob"}, testutil.Column(res.Data[0], "first_name"))
	_, ok := res.Data[0][0]["name"]
	assert.False(t, ok)

	_, err := testutil.Flow(people(), RenameFields(map[string]string{"name": "id"})).Open(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema), "got %v", err)
}

func TestRenameFieldsSwap(t *testing.T) {
	h := testutil.T(t)
	res := h.Results(testutil.Flow(people(), RenameFields(map[string]string{"name": "age", "age": "name"})))
	assert.Equal(t, []string{"id", "age", "name"}, res.Package.ResourceAt(0).Schema.FieldNames())
	assert.Equal(t, []any{"carol", "alice", "bob"}, testutil.Column(res.Data[0], "age"))
	assert.Equal(t, []any{int64(41), nil, int64(29)}, testutil.Column(res.Data[0], "name"))

	_, err := testutil.Flow(people(), RenameFields(map[string]string{"name": "x", "age": "x"})).Open(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema), "got %v", err)
}

func TestFilterRows(t *testing.T) {
	h := testutil.T(t)
	adults := FilterRows(func(_ context.Context, row schema.Row) (bool, error) {
		age, ok := row["age"].(int64)
		return ok && age >= 30, nil
	})
	res := h.Results(testutil.Flow(people(), adults))
	assert.Equal(t, []any{"carol"}, testutil.Column(res.Data[0], "name"))

	res = h.Results(testutil.Flow(people(), FilterEqual("id", "3")))
	assert.Equal(t, []any{"bob"}, testutil.Column(res.Data[0], "name"))

	res = h.Results(testutil.Flow(people(), FilterNotEqual("id", 3)))
	assert.Equal(t, []any{"carol", "alice"}, testutil.Column(res.Data[0], "name"))
}

func TestFilterRowsOnlyShrinks(t *testing.T) {
	h := testutil.T(t)
	all := h.Results(testutil.Flow(people()))
	kept := h.Results(testutil.Flow(people(), FilterNotEqual("name", "alice")))
	assert.LessOrEqual(t, len(kept.Data[0]), len(all.Data[0]))
	assert.Equal(t, []any{int64(1), int64(3)}, testutil.Column(kept.Data[0], "id"))
}

func TestSortRows(t *testing.T) {
	h := testutil.T(t)
	res := h.Results(testutil.Flow(people(), SortRows([]string{"age"})))
	assert.Equal(t, []any{"alice", "bob", "carol"}, testutil.Column(res.Data[0], "name"))

	res = h.Results(testutil.Flow(people(), SortRows([]string{"name"}, Descending())))
	assert.Equal(t, []any{"carol", "bob", "alice"}, testutil.Column(res.Data[0], "name"))

	_, err := testutil.Flow(people(), SortRows([]string{"ghost"})).Results(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema), "got %v", err)
}

func TestUpdateResourceAndPackage(t *testing.T) {
	h := testutil.T(t)
	res := h.Results(testutil.Flow(people(),
		UpdateResource("people", ResourceUpdate{Name: "persons", Title: "People", Metadata: map[string]any{"owner": "hr"}}),
		UpdatePackage(PackageUpdate{Name: "directory"}),
	))
	assert.Equal(t, "directory", res.Package.Name)
	r := res.Package.ResourceAt(0)
	assert.Equal(t, "persons", r.Name)
	assert.Equal(t, "People", r.Title)
	assert.Equal(t, "hr", r.Metadata["owner"])
	assert.Len(t, res.Data[0], 3)

	_, err := testutil.Flow(people(), UpdateResource("ghost", ResourceUpdate{Title: "x"})).Open(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema), "got %v", err)
}

func TestDropResources(t *testing.T) {
	h := testutil.T(t)
	res := h.Results(testutil.Flow(people(), cities(), DropResources("people")))
	assert.Equal(t, []string{"cities"}, res.Package.ResourceNames())
	assert.Len(t, res.Data, 1)

	_, err := testutil.Flow(people(), DropResources("ghost")).Open(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchema), "got %v", err)
}

package flow

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/dataflow/checkpoint"
	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/storage/local"
)

func salesSeed() Step {
	sch := schema.MustSchema(
		schema.NewField("id", schema.TypeInteger),
		schema.NewField("price", schema.TypeNumber),
		schema.Field{Name: "day", Type: schema.TypeDate, Format: "%d/%m/%Y"},
	)
	return SeedResource(schema.NewResource("sales", sch), []schema.Row{
		{"id": "1", "price": "10.50", "day": "01/02/2024"},
		{"id": "2", "price": "3", "day": "15/03/2024"},
	})
}

func counter(n *int) Step {
	return RowStep(func(context.Context, schema.Row) (schema.Row, error) {
		*n++
		return nil, nil
	})
}

func TestCheckpointIdempotence(t *testing.T) {
	st, err := local.NewStorage(t.TempDir())
	require.NoError(t, err)
	store := checkpoint.New(st)
	ctx := context.Background()

	upstream, downstream := 0, 0
	f := quiet(salesSeed(), counter(&upstream), Checkpoint(store, "sales"), counter(&downstream))

	first, err := f.Results(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream)
	assert.Equal(t, 2, downstream)

	ok, err := store.Exists(ctx, "sales")
	require.NoError(t, err)
	require.True(t, ok)

	second, err := f.Results(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream, "steps before the checkpoint must not run again")
	assert.Equal(t, 4, downstream)

	fresh, err := quiet(salesSeed()).Results(ctx)
	require.NoError(t, err)
	require.Len(t, second.Data[0], 2)
	assert.Equal(t, fresh.Data, first.Data)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, "10.5", second.Data[0][0]["price"].(decimal.Decimal).String())
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), second.Data[0][0]["day"])

	day, _ := second.Package.ResourceAt(0).Schema.Field("day")
	assert.Equal(t, "%d/%m/%Y", day.Format)
	assert.Equal(t, first.Package.ResourceAt(0).Schema.FieldNames(), second.Package.ResourceAt(0).Schema.FieldNames())
}

func TestCheckpointReplaysStructuredValues(t *testing.T) {
	st, err := local.NewStorage(t.TempDir())
	require.NoError(t, err)
	store := checkpoint.New(st)
	ctx := context.Background()

	sch := schema.MustSchema(
		schema.NewField("id", schema.TypeInteger),
		schema.NewField("tags", schema.TypeArray),
		schema.NewField("attrs", schema.TypeObject),
		schema.NewField("blob", schema.TypeAny),
	)
	seed := SeedResource(schema.NewResource("items", sch), []schema.Row{
		{
			"id":    int64(1),
			"tags":  []any{int64(1), int(2), "x", decimal.RequireFromString("1.5")},
			"attrs": map[string]any{"n": int32(3), "ok": true, "nested": []any{uint8(4)}},
			"blob":  int64(7),
		},
		{"id": int64(2), "tags": `[10, 2.25, null]`, "attrs": `{"w": 1e2}`, "blob": 3.0},
	})
	extra := RowStep(func(_ context.Context, row schema.Row) (schema.Row, error) {
		row["seen"] = []any{row["id"], "x"}
		row["rank"] = int64(9)
		return row, nil
	})

	fresh, err := quiet(seed, extra).Results(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), "x", decimal.RequireFromString("1.5")}, fresh.Data[0][0]["tags"])
	assert.Equal(t, map[string]any{"n": int64(3), "ok": true, "nested": []any{int64(4)}}, fresh.Data[0][0]["attrs"])
	assert.Equal(t, int64(7), fresh.Data[0][0]["blob"])
	w := fresh.Data[0][1]["attrs"].(map[string]any)["w"].(decimal.Decimal)
	assert.True(t, w.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int32(-1), w.Exponent())

	f := quiet(seed, extra, Checkpoint(store, "items"))
	first, err := f.Results(ctx)
	require.NoError(t, err)
	resumed, err := f.Results(ctx)
	require.NoError(t, err)

	assert.Equal(t, fresh.Data, first.Data)
	assert.Equal(t, fresh.Data, resumed.Data)
}

func TestEmptyPackageCheckpoint(t *testing.T) {
	st, err := local.NewStorage(t.TempDir())
	require.NoError(t, err)
	store := checkpoint.New(st)
	ctx := context.Background()

	describes := 0
	upstream := PackageStep(PackageFuncs{DescribeFunc: func(context.Context, *schema.Package) error {
		describes++
		return nil
	}})
	f := quiet(upstream, Checkpoint(store, "empty"))

	res, err := f.Process(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Package.Len())
	ok, err := store.Exists(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, describes, "steps before a saved checkpoint must not run again")
}

func TestEmptyPackageCheckpointNeedsFinish(t *testing.T) {
	store := &memStore{}
	s, err := quiet(Checkpoint(store, "empty")).Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Zero(t, store.saves)
}

func TestResumeFromLastExistingCheckpoint(t *testing.T) {
	store := &memStore{}
	ctx := context.Background()

	a, b, c := 0, 0, 0
	f := quiet(SeedRows("r", names("x", "y")), counter(&a), Checkpoint(store, "one"), counter(&b), Checkpoint(store, "two"), counter(&c))

	_, err := f.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2}, []int{a, b, c})
	assert.Equal(t, 2, store.saves)

	_, err = f.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 4}, []int{a, b, c})

	delete(store.records, "two")
	_, err = f.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, []int{a, b, c})
	assert.Equal(t, 3, store.saves)
}

func TestCheckpointNotSavedWithoutPull(t *testing.T) {
	store := &memStore{}
	s, err := quiet(SeedRows("r", names("x")), Checkpoint(store, "cp")).Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Zero(t, store.saves)
}

func TestCheckpointSaveFailure(t *testing.T) {
	st, err := local.NewStorage(t.TempDir())
	require.NoError(t, err)
	store := checkpoint.New(st)

	seed := SeedResource(
		schema.NewResource("r", schema.MustSchema(schema.NewField("n", schema.TypeInteger))),
		[]schema.Row{{"n": "1"}, {"n": "bad"}},
	)
	_, err = quiet(seed, Checkpoint(store, "cp")).Results(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCast), "got %v", err)

	appErr, _ := errors.AsAppError(err)
	assert.Equal(t, 0, appErr.Details[errors.DetailStep])

	ok, err := store.Exists(context.Background(), "cp")
	require.NoError(t, err)
	assert.False(t, ok)
}

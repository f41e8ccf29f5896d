package sink

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/source"
	"github.com/kbukum/dataflow/storage"
	"github.com/kbukum/dataflow/testutil"
)

func orders() flow.Step {
	res := testutil.Resource("orders", "id:integer", "total:number", "paid:boolean", "day:date", "name", "tags:array")
	return flow.SeedResource(res, testutil.Rows(
		[]string{"id", "total", "paid", "day", "name", "tags"},
		[]any{"1", "10.50", "true", "2024-01-02", "first", `["x","y"]`},
		[]any{"2", "3", "false", "2024-02-03", "second", `[]`},
		[]any{"3", "0.125", "true", "2024-03-04", "third", `[1]`},
	))
}

func assertSameOrders(t *testing.T, want, got []schema.Row) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i]["id"], got[i]["id"])
		assert.Equal(t, want[i]["paid"], got[i]["paid"])
		assert.Equal(t, want[i]["day"], got[i]["day"])
		assert.Equal(t, want[i]["name"], got[i]["name"])
		assert.Equal(t, want[i]["tags"], got[i]["tags"])
		wd, gd := want[i]["total"].(decimal.Decimal), got[i]["total"].(decimal.Decimal)
		assert.True(t, wd.Equal(gd), "total %s != %s", wd, gd)
		assert.Equal(t, wd.String(), gd.String())
	}
}

func TestDumpToPathRoundTrip(t *testing.T) {
	for _, format := range []string{FormatCSV, FormatJSON} {
		t.Run(format, func(t *testing.T) {
			h := testutil.T(t)
			st := h.Storage()

			dumped := h.Results(testutil.Flow(orders(), DumpToPath(st, PathOptions{Dir: "out", Format: format, Name: "shop"})))
			require.Len(t, dumped.Data[0], 3)
			assert.Equal(t, int64(1), dumped.Data[0][0]["id"], "rows pass through typed")

			require.Len(t, dumped.Summaries, 1)
			sum := dumped.Summaries[0]
			assert.Equal(t, NamePath, sum.Sink)
			assert.Equal(t, "shop", sum.Dataset)
			assert.Equal(t, "out/"+schema.DescriptorFile, sum.Location)
			assert.Equal(t, int64(3), sum.Rows)
			assert.Positive(t, sum.Bytes)
			assert.True(t, strings.HasPrefix(sum.Hash, "sha256:"))

			ok, err := st.Exists(context.Background(), "out/orders."+format)
			require.NoError(t, err)
			assert.True(t, ok)

			back := h.Results(testutil.Flow(source.Datapackage(st, "out")))
			assert.Equal(t, "shop", back.Package.Name)
			res := back.Package.ResourceAt(0)
			assert.Equal(t, "orders."+format, res.Path)
			assert.Equal(t, format, res.Format)
			assert.Equal(t, dumped.Package.ResourceAt(0).Schema.FieldNames(), res.Schema.FieldNames())
			assert.NotEmpty(t, res.Metadata[MetaHash])
			assertSameOrders(t, dumped.Data[0], back.Data[0])
		})
	}
}

func TestDumpToPathDescriptor(t *testing.T) {
	h := testutil.T(t)
	st := h.Storage()
	h.Results(testutil.Flow(orders(), DumpToPath(st, PathOptions{Dir: "d"})))

	data, err := storage.ReadBytes(context.Background(), st, "d/"+schema.DescriptorFile)
	require.NoError(t, err)
	var pkg schema.Package
	require.NoError(t, pkg.UnmarshalJSON(data))

	res := pkg.ResourceAt(0)
	assert.EqualValues(t, 3, res.Metadata[MetaCount])
	file, err := storage.ReadBytes(context.Background(), st, "d/orders.csv")
	require.NoError(t, err)
	assert.EqualValues(t, len(file), res.Metadata[MetaBytes])
	assert.Equal(t, hashOf(file), res.Metadata[MetaHash])
	assert.True(t, strings.HasPrefix(string(file), "id,total,paid,day,name,tags\n1,10.50,true,2024-01-02,first,"))
}

func TestDumpToPathWritesNothingUntilComplete(t *testing.T) {
	h := testutil.T(t)
	st := h.Storage()
	s, err := testutil.Flow(orders(), DumpToPath(st, PathOptions{Dir: "p"})).Open(context.Background())
	require.NoError(t, err)

	it, err := s.Resource(0)
	require.NoError(t, err)
	_, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Close())

	for _, p := range []string{"p/orders.csv", "p/" + schema.DescriptorFile} {
		exists, err := st.Exists(context.Background(), p)
		require.NoError(t, err)
		assert.False(t, exists, p)
	}
}

func TestDumpToPathFailedStream(t *testing.T) {
	h := testutil.T(t)
	st := h.Storage()
	failing := flow.RowStep(func(_ context.Context, row schema.Row) (schema.Row, error) {
		if row["id"] == int64(2) {
			return nil, errors.InvalidInput("id", "two is not allowed")
		}
		return row, nil
	})
	_, err := testutil.Flow(orders(), failing, DumpToPath(st, PathOptions{Dir: "f"})).Results(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput), "got %v", err)

	exists, err := st.Exists(context.Background(), "f/"+schema.DescriptorFile)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDumpToPathInvalidFormat(t *testing.T) {
	h := testutil.T(t)
	_, err := testutil.Flow(orders(), DumpToPath(h.Storage(), PathOptions{Format: "xml"})).Open(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput), "got %v", err)
}

func TestDumpToPathMultipleResources(t *testing.T) {
	h := testutil.T(t)
	st := h.Storage()
	extra := source.Load(source.Rows("events", testutil.Rows([]string{"at"}, []any{"2024-01-02T03:04:05Z"})))

	res := h.Results(testutil.Flow(orders(), extra, DumpToPath(st, PathOptions{Dir: "m"})))
	require.Len(t, res.Summaries, 1)
	assert.Equal(t, int64(4), res.Summaries[0].Rows)

	back := h.Results(testutil.Flow(source.Datapackage(st, "m")))
	assert.Equal(t, []string{"orders", "events"}, back.Package.ResourceNames())
	at, _ := back.Package.ResourceAt(1).Schema.Field("at")
	assert.Equal(t, schema.TypeDatetime, at.Type)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), back.Data[1][0]["at"])
}

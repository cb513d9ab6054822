package query

import (
	"context"
	"testing"
	"time"

	"github.com/ashureev/datachat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOnlyStatement(t *testing.T) {
	accepted := []string{
		"SELECT 1",
		"  select * from dataset;  ",
		"WITH t AS (SELECT 1) SELECT * FROM t",
		"SELECT\n\t*\nFROM dataset",
	}
	for _, q := range accepted {
		_, err := readOnlyStatement(q)
		assert.NoError(t, err, q)
	}

	rejected := []string{
		"",
		";",
		"DELETE FROM dataset",
		"UPDATE dataset SET amount = 0",
		"SELECT 1; DROP TABLE dataset",
		"PRAGMA table_info(dataset)",
		"ATTACH DATABASE 'x.db' AS x",
	}
	for _, q := range rejected {
		_, err := readOnlyStatement(q)
		assert.Error(t, err, q)
	}
}

func TestFrameQueryTypes(t *testing.T) {
	ds := domain.NewDataset([]string{domain.IDColumn, "name", "active", "score", "seen"}, []domain.Row{
		{domain.IDColumn: "1", "name": "a", "active": true, "score": int64(3), "seen": time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{domain.IDColumn: "2", "name": `say "hi"`, "active": false},
	})

	f, err := LoadFrame(context.Background(), ds)
	require.NoError(t, err)
	defer f.Close()

	out, err := f.Query(context.Background(), `SELECT "_id", name, active, score, seen FROM dataset ORDER BY "_id"`)
	require.NoError(t, err)

	assert.Equal(t, []string{"_id", "name", "active", "score", "seen"}, out.Columns())
	assert.Equal(t, []any{"1", "a", int64(1), int64(3), "2024-01-02T00:00:00Z"}, out.Values(0))
	assert.Equal(t, []any{"2", `say "hi"`, int64(0), nil, nil}, out.Values(1))
}

func TestFrameIsReadOnly(t *testing.T) {
	ds := domain.NewDataset([]string{domain.IDColumn}, []domain.Row{{domain.IDColumn: "1"}})

	f, err := LoadFrame(context.Background(), ds)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.db.ExecContext(context.Background(), "DELETE FROM dataset")
	assert.Error(t, err)

	out, err := f.Query(context.Background(), "SELECT COUNT(*) AS n FROM dataset")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, out.Values(0))
}

func TestFrameQuotesColumnNames(t *testing.T) {
	ds := domain.NewDataset([]string{domain.IDColumn, "order total", `odd"name`}, []domain.Row{
		{domain.IDColumn: "1", "order total": 9.5, `odd"name`: "x"},
	})

	f, err := LoadFrame(context.Background(), ds)
	require.NoError(t, err)
	defer f.Close()

	out, err := f.Query(context.Background(), `SELECT "order total", "odd""name" FROM dataset`)
	require.NoError(t, err)
	assert.Equal(t, []any{9.5, "x"}, out.Values(0))
}

func TestSQLColumns(t *testing.T) {
	assert.Equal(t,
		[]string{"_id", "Amount", "amount_3", "amount_2", "column_1", "column_2"},
		sqlColumns([]string{"_id", "Amount", "amount", "amount_2", "", ""}),
	)
	assert.Equal(t, []string{"a", "b"}, sqlColumns([]string{"a", "b"}))
}

func TestFrameCaseCollidingColumns(t *testing.T) {
	ds := domain.NewDataset([]string{domain.IDColumn, "Amount", "amount", ""}, []domain.Row{
		{domain.IDColumn: "1", "Amount": int64(5), "amount": 2.5, "": "blank"},
		{domain.IDColumn: "2", "amount": 1.5},
	})

	f, err := LoadFrame(context.Background(), ds)
	require.NoError(t, err)
	defer f.Close()

	out, err := f.Query(context.Background(), "SELECT COUNT(*) AS n FROM dataset")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2)}, out.Values(0))

	out, err = f.Query(context.Background(), `SELECT "Amount", "amount_2", "column_1" FROM dataset ORDER BY "_id"`)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(5), 2.5, "blank"}, out.Values(0))
	assert.Equal(t, []any{nil, 1.5, nil}, out.Values(1))
}

func TestReadOnlyStatementQuotedSemicolons(t *testing.T) {
	accepted := []string{
		`SELECT * FROM dataset WHERE note = 'a;b'`,
		`SELECT "x;y" FROM dataset;`,
		`SELECT 'it''s; fine'`,
		"SELECT 1 /* a; b */ FROM dataset",
		"SELECT 1 -- trailing; note",
	}
	for _, q := range accepted {
		_, err := readOnlyStatement(q)
		assert.NoError(t, err, q)
	}

	rejected := []string{
		`SELECT 'a;b'; DELETE FROM dataset`,
		`SELECT "x"; DROP TABLE dataset`,
		"SELECT 1 -- it's\n; DELETE FROM dataset",
		"SELECT [a;b]; DELETE FROM dataset",
	}
	for _, q := range rejected {
		_, err := readOnlyStatement(q)
		assert.Error(t, err, q)
	}
}

func TestFrameQueryWithQuotedSemicolon(t *testing.T) {
	ds := domain.NewDataset([]string{domain.IDColumn, "note"}, []domain.Row{
		{domain.IDColumn: "1", "note": "a;b"},
		{domain.IDColumn: "2", "note": "c"},
	})

	f, err := LoadFrame(context.Background(), ds)
	require.NoError(t, err)
	defer f.Close()

	out, err := f.Query(context.Background(), `SELECT "_id" FROM dataset WHERE note = 'a;b'`)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, []any{"1"}, out.Values(0))
}

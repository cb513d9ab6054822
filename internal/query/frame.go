package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/datachat/internal/domain"
	_ "modernc.org/sqlite"
)

// Frame is a dataset loaded into a private in-memory SQLite database,
// queryable with read-only SQL.
type Frame struct {
	db *sql.DB
}

// LoadFrame copies ds into a fresh in-memory table named TableName.
func LoadFrame(ctx context.Context, ds *domain.Dataset) (*Frame, error) {
	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		return nil, fmt.Errorf("open frame database: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	f := &Frame{db: db}
	if err := f.load(ctx, ds); err != nil {
		_ = db.Close()
		return nil, err
	}
	return f, nil
}

func (f *Frame) load(ctx context.Context, ds *domain.Dataset) error {
	columns := ds.Columns()
	if len(columns) == 0 {
		columns = []string{domain.IDColumn}
	}

	names := sqlColumns(columns)
	defs := make([]string, len(columns))
	for i, c := range columns {
		vals, _ := ds.Column(c)
		defs[i] = quoteIdent(names[i]) + " " + sqliteAffinity(inferType(vals))
	}

	schema := fmt.Sprintf("CREATE TABLE %s (%s)", TableName, strings.Join(defs, ", "))
	if _, err := f.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create frame table: %w", err)
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin frame load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", TableName, placeholders))
	if err != nil {
		return fmt.Errorf("prepare frame insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for i := range ds.Len() {
		row := ds.Row(i)
		for j, c := range columns {
			args[j] = sqliteValue(row[c])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert frame row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit frame load: %w", err)
	}

	if _, err := f.db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return fmt.Errorf("lock frame: %w", err)
	}

	slog.Debug("Loaded dataset frame", "rows", ds.Len(), "columns", len(columns))
	return nil
}

// Query runs a single read-only SELECT and returns the result as a dataset.
func (f *Frame) Query(ctx context.Context, query string) (*domain.Dataset, error) {
	stmt, err := readOnlyStatement(query)
	if err != nil {
		return nil, err
	}

	rows, err := f.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	var out []domain.Row
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		row := make(domain.Row, len(columns))
		for i, c := range columns {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}

	return domain.NewDataset(columns, out), nil
}

// Close releases the in-memory database.
func (f *Frame) Close() error {
	return f.db.Close()
}

// readOnlyStatement accepts exactly one SELECT or WITH statement.
func readOnlyStatement(query string) (string, error) {
	stmt := strings.TrimSpace(query)
	stmt = strings.TrimSpace(strings.TrimRight(stmt, "; \t\n"))
	if stmt == "" {
		return "", fmt.Errorf("empty sql")
	}
	if hasStatementBreak(stmt) {
		return "", fmt.Errorf("only a single statement is allowed")
	}

	upper := strings.ToUpper(stmt)
	end := strings.IndexFunc(upper, func(r rune) bool { return r < 'A' || r > 'Z' })
	if end < 0 {
		end = len(upper)
	}
	first := upper[:end]
	if first != "SELECT" && first != "WITH" {
		return "", fmt.Errorf("only SELECT statements are allowed, got %s", first)
	}
	return stmt, nil
}

// hasStatementBreak reports a ';' outside quoted text and comments.
// A doubled quote inside a quoted run closes and reopens it, so it stays quoted.
func hasStatementBreak(stmt string) bool {
	for i := 0; i < len(stmt); i++ {
		var closer string
		switch c := stmt[i]; {
		case c == ';':
			return true
		case c == '\'' || c == '"' || c == '`':
			closer = string(c)
		case c == '[':
			closer = "]"
		case strings.HasPrefix(stmt[i:], "--"):
			closer = "\n"
		case strings.HasPrefix(stmt[i:], "/*"):
			closer = "*/"
			i++
		default:
			continue
		}
		n := strings.Index(stmt[i+1:], closer)
		if n < 0 {
			return false
		}
		i += n + len(closer)
	}
	return false
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqliteAffinity(t valueType) string {
	switch t {
	case typeInteger, typeBoolean:
		return "INTEGER"
	case typeNumber:
		return "REAL"
	default:
		return "TEXT"
	}
}

func sqliteValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	default:
		return t
	}
}

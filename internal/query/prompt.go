package query

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ashureev/datachat/internal/domain"
)

// TableName is the name under which the dataset is exposed to SQL.
const TableName = "dataset"

// sampleRows is how many rows of the dataset are shown to the model.
const sampleRows = 5

// ColumnInfo describes one dataset column to the model. Name is the SQL
// column name; Field is set to the document field when the two differ.
type ColumnInfo struct {
	Name  string `json:"name"`
	Field string `json:"field,omitempty"`
	Type  string `json:"type"`
}

// TableContext is the dataset summary sent alongside a question.
type TableContext struct {
	TableName  string       `json:"table_name"`
	Columns    []ColumnInfo `json:"columns"`
	SampleRows [][]any      `json:"sample_rows"`
	RowCount   int          `json:"row_count"`
}

// NewTableContext summarizes ds for the model.
func NewTableContext(ds *domain.Dataset) TableContext {
	tc := TableContext{
		TableName:  TableName,
		Columns:    []ColumnInfo{},
		SampleRows: [][]any{},
		RowCount:   ds.Len(),
	}
	columns := ds.Columns()
	for i, name := range sqlColumns(columns) {
		vals, _ := ds.Column(columns[i])
		info := ColumnInfo{Name: name, Type: string(inferType(vals))}
		if name != columns[i] {
			info.Field = columns[i]
		}
		tc.Columns = append(tc.Columns, info)
	}
	head := ds.Head(sampleRows)
	for i := range head.Len() {
		tc.SampleRows = append(tc.SampleRows, head.Values(i))
	}
	return tc
}

const systemPrompt = `You answer questions about a single table of data.
The table is available to SQLite as "dataset". Its columns, their types, a few sample rows and the total row count are given as JSON.
Reply with exactly one JSON object and nothing else, using one of these shapes:
{"type":"text","answer":"<plain answer>"} when the question needs no computation over the rows.
{"type":"scalar","sql":"<SELECT returning one row with one column>"} for a single value such as a count, total or average.
{"type":"table","sql":"<SELECT>"} when the answer is a list of rows.
{"type":"chart","sql":"<SELECT>","chart":{"kind":"bar|line|pie","x":"<label column>","y":"<numeric column>","title":"<title>"}} when the user asks for a plot or chart.
SQL must be a single read-only SELECT (or WITH ... SELECT) statement over "dataset". Quote column names with double quotes.
Always use the column "name" in SQL; "field" only shows the document field a renamed column came from.`

// BuildPrompt assembles the messages for one question.
func BuildPrompt(ds *domain.Dataset, question string) ([]Message, error) {
	tc, err := json.Marshal(NewTableContext(ds))
	if err != nil {
		return nil, err
	}

	var user strings.Builder
	user.WriteString("Table:\n")
	user.Write(tc)
	if ds.Empty() {
		user.WriteString("\nThe table has no rows; SQL over it returns nothing.")
	}
	user.WriteString("\n\nQuestion: ")
	user.WriteString(strings.TrimSpace(question))

	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: user.String()},
	}, nil
}

type valueType string

const (
	typeNull     valueType = "null"
	typeInteger  valueType = "integer"
	typeNumber   valueType = "number"
	typeBoolean  valueType = "boolean"
	typeDatetime valueType = "datetime"
	typeText     valueType = "text"
)

// inferType returns the narrowest type covering every non-nil value.
func inferType(vals []any) valueType {
	t := typeNull
	for _, v := range vals {
		var vt valueType
		switch v.(type) {
		case nil:
			continue
		case int64, int, int32:
			vt = typeInteger
		case float64, float32:
			vt = typeNumber
		case bool:
			vt = typeBoolean
		case time.Time:
			vt = typeDatetime
		default:
			vt = typeText
		}
		switch {
		case t == typeNull || t == vt:
			t = vt
		case (t == typeInteger && vt == typeNumber) || (t == typeNumber && vt == typeInteger):
			t = typeNumber
		default:
			return typeText
		}
	}
	return t
}

package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ashureev/datachat/internal/domain"
)

// Field is one key/value pair of a document, in document order.
type Field struct {
	Key   string
	Value any
}

// DatasetBuilder assembles documents into a dataset. Columns are the union of
// document fields in order of first appearance, after the reserved id column.
type DatasetBuilder struct {
	columns []string
	seen    map[string]struct{}
	rows    []domain.Row
}

// NewDatasetBuilder creates an empty builder.
func NewDatasetBuilder() *DatasetBuilder {
	return &DatasetBuilder{
		columns: []string{domain.IDColumn},
		seen:    map[string]struct{}{domain.IDColumn: {}},
	}
}

// Add appends one document. id is the document identifier already rendered as text;
// an id field inside fields is ignored.
func (b *DatasetBuilder) Add(id string, fields []Field) {
	row := domain.Row{domain.IDColumn: id}
	for _, f := range fields {
		if f.Key == domain.IDColumn {
			continue
		}
		if _, ok := b.seen[f.Key]; !ok {
			b.seen[f.Key] = struct{}{}
			b.columns = append(b.columns, f.Key)
		}
		row[f.Key] = scalarize(f.Value)
	}
	b.rows = append(b.rows, row)
}

// Len returns the number of documents added so far.
func (b *DatasetBuilder) Len() int {
	return len(b.rows)
}

// Build returns the dataset. With no documents the result has no columns either.
func (b *DatasetBuilder) Build() *domain.Dataset {
	if len(b.rows) == 0 {
		return domain.NewDataset(nil, nil)
	}
	return domain.NewDataset(b.columns, b.rows)
}

// scalarize turns a driver-neutral value into a cell value: nested documents
// and arrays become compact JSON text, bytes become base64, times become UTC.
func scalarize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.UTC()
	case []byte:
		return base64.StdEncoding.EncodeToString(t)
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}

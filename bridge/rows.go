package bridge

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// rowIter adapts *sql.Rows to reader.RowIter, converting each driver value
// back into the engine's dynamically-typed Value.
type rowIter struct {
	rows *sql.Rows
	cols []string
}

func newRowIter(rows *sql.Rows) (*rowIter, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &rowIter{rows: rows, cols: cols}, nil
}

func (it *rowIter) Next() (schema.Row, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return schema.Row{}, err
		}
		return schema.Row{}, io.EOF
	}

	dest := make([]interface{}, len(it.cols))
	ptrs := make([]interface{}, len(it.cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		return schema.Row{}, err
	}

	values := make([]sqltypes.Value, len(it.cols))
	for i, v := range dest {
		values[i] = nativeToValue(v)
	}
	return schema.NewRow(it.cols, values), nil
}

func (it *rowIter) Close() error {
	return it.rows.Close()
}

// nativeToValue converts a value produced by database/sql scanning into the
// engine's Value, mirroring the inference rules the native-format readers
// apply when they build Values from parsed text.
func nativeToValue(v interface{}) sqltypes.Value {
	switch t := v.(type) {
	case nil:
		return sqltypes.Null
	case bool:
		return sqltypes.BoolValue(t)
	case int64:
		return sqltypes.IntValue(t)
	case int32:
		return sqltypes.IntValue(int64(t))
	case int:
		return sqltypes.IntValue(int64(t))
	case float64:
		return sqltypes.FloatValue(t)
	case float32:
		return sqltypes.FloatValue(float64(t))
	case []byte:
		return sqltypes.StringValue(string(t))
	case string:
		return sqltypes.StringValue(t)
	case time.Time:
		return sqltypes.DatetimeValue(t)
	default:
		return sqltypes.StringValue(fmt.Sprintf("%v", t))
	}
}

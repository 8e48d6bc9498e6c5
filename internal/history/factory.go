package history

import "strings"

// NewSink selects a sink implementation by DSN scheme. An empty DSN means
// history is disabled and yields a nil Sink with no error.
func NewSink(dsn, table string) (Sink, error) {
	d := strings.TrimSpace(dsn)
	if d == "" {
		return nil, nil
	}
	if strings.HasPrefix(strings.ToLower(d), "clickhouse://") {
		return NewClickHouseSink(d, table)
	}
	return NewSQLSink(d, table)
}

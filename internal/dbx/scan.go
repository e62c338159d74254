package dbx

import (
	"database/sql"
	"fmt"
	"time"
)

// sqliteTimeLayouts are the textual forms a TIMESTAMP column may come back
// in when the driver hands over the raw text.
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type timeScanner struct {
	dst *time.Time
}

// ScanTime returns a sql.Scanner that stores a timestamp column into dst as
// UTC. It accepts time.Time, text in the SQLite layouts and Unix seconds.
func ScanTime(dst *time.Time) sql.Scanner {
	return timeScanner{dst: dst}
}

func (s timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*s.dst = v.UTC()
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	case int64:
		*s.dst = time.Unix(v, 0).UTC()
	case nil:
		*s.dst = time.Time{}
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
	return nil
}

func (s timeScanner) parse(v string) error {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			*s.dst = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized time value %q", v)
}

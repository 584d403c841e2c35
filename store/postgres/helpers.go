package postgres

import (
	"database/sql"
	"encoding/json"
)

var errNoRows = sql.ErrNoRows

// jsonOrNil marshals a result map for the JSONB column, keeping a nil map
// as a SQL NULL rather than the literal string "null".
func jsonOrNil(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}

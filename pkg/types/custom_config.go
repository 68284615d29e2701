package types

import (
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
)

// CustomConfig is one persisted configuration entry. Values are raw
// JSON so each consumer owns its own schema.
type CustomConfig struct {
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Value       json.RawMessage `json:"value" db:"value"`
	Category    string          `json:"category" db:"category"`
	Status      int             `json:"status" db:"status"`
	CreatedAt   int64           `json:"created_at" db:"created_at"`
	UpdatedAt   int64           `json:"updated_at" db:"updated_at"`
}

type ListCustomConfigOptions struct {
	Name     string
	Category string
	Status   *int
}

func (opt ListCustomConfigOptions) Apply(query *sq.SelectBuilder) {
	if opt.Name != "" {
		*query = query.Where(sq.Like{"name": "%" + opt.Name + "%"})
	}
	if opt.Category != "" {
		*query = query.Where(sq.Eq{"category": opt.Category})
	}
	if opt.Status != nil {
		*query = query.Where(sq.Eq{"status": *opt.Status})
	}
}

package repository

import "github.com/okian/aula/pkg/logger"

// SQLiteOption configures the SQLite store.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteLogger overrides the store's logger.
func WithSQLiteLogger(lg logger.Logger) SQLiteOption {
	return func(s *SQLiteStore) {
		if lg != nil {
			s.lg = lg
		}
	}
}

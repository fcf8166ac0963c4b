package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound   = errors.New("not found")
	ErrAppend     = errors.New("append failed")
	ErrQuery      = errors.New("query failed")
	ErrOpenStore  = errors.New("open store failed")
	ErrMigrate    = errors.New("migration failed")
	ErrCloseStore = errors.New("close store failed")
)

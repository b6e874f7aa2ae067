package journal

import "errors"

var (
	// ErrClosed is returned by Append after Close.
	ErrClosed = errors.New("journal closed")
	// ErrNoDSN is returned when a database journal is requested without a DSN.
	ErrNoDSN = errors.New("journal dsn is empty")
)

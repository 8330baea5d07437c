// Package ledger remembers which article links have already been published.
// Both implementations load the full set once when opened and answer Contains
// from memory for the rest of the run.
package ledger

import "context"

type Ledger interface {
	Contains(link string) bool
	Add(ctx context.Context, link string) error
	Close() error
}

// Open picks the SQL ledger when dsn is set and the flat file ledger otherwise.
func Open(ctx context.Context, path, dsn string) (Ledger, error) {
	if dsn != "" {
		l, err := OpenSQL(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return l, nil
	}

	l, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	return l, nil
}

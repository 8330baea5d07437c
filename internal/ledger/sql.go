package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS published_articles (
	link         TEXT PRIMARY KEY,
	published_at TIMESTAMP NOT NULL
)`

// SQL keeps the ledger in a published_articles table, in PostgreSQL or SQLite.
type SQL struct {
	db   *sqlx.DB
	mu   sync.Mutex
	seen map[string]struct{}
}

// OpenSQL connects using dsn: postgres:// and postgresql:// URLs go to
// PostgreSQL, sqlite://<path> (or a bare *.db path) to SQLite.
func OpenSQL(ctx context.Context, dsn string) (*SQL, error) {
	driver, source, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, driver, source)
	if err != nil {
		return nil, fmt.Errorf("connect ledger db: %w", err)
	}
	if driver == "sqlite" {
		// One connection keeps :memory: databases alive and serializes writes.
		db.SetMaxOpenConns(1)
	}

	l, err := NewSQL(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// NewSQL creates the table if needed and loads every recorded link.
func NewSQL(ctx context.Context, db *sqlx.DB) (*SQL, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create ledger table: %w", err)
	}

	var links []string
	if err := db.SelectContext(ctx, &links, `SELECT link FROM published_articles`); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	l := &SQL{db: db, seen: make(map[string]struct{}, len(links))}
	for _, link := range links {
		l.seen[link] = struct{}{}
	}
	return l, nil
}

func parseDSN(dsn string) (driver, source string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasSuffix(dsn, ".db"), strings.HasPrefix(dsn, "file:"):
		return "sqlite", dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported ledger dsn %q", dsn)
	}
}

func (l *SQL) Contains(link string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[strings.TrimSpace(link)]
	return ok
}

func (l *SQL) Add(ctx context.Context, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return errors.New("empty link")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[link]; ok {
		return nil
	}

	query := l.db.Rebind(`INSERT INTO published_articles (link, published_at) VALUES (?, ?) ON CONFLICT (link) DO NOTHING`)
	if _, err := l.db.ExecContext(ctx, query, link, time.Now().UTC()); err != nil {
		return fmt.Errorf("record link: %w", err)
	}

	l.seen[link] = struct{}{}
	return nil
}

func (l *SQL) Close() error {
	return l.db.Close()
}

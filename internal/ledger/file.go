package ledger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File is a newline-delimited list of links, appended to on every Add.
type File struct {
	path string
	mu   sync.Mutex
	seen map[string]struct{}
}

// OpenFile reads the ledger at path. A missing file is an empty ledger.
func OpenFile(path string) (*File, error) {
	l := &File{path: path, seen: make(map[string]struct{})}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if link := strings.TrimSpace(sc.Text()); link != "" {
			l.seen[link] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	return l, nil
}

func (l *File) Contains(link string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[strings.TrimSpace(link)]
	return ok
}

// Add appends link unless it is already recorded.
func (l *File) Add(_ context.Context, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return errors.New("empty link")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[link]; ok {
		return nil
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if _, err := f.WriteString(link + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("append ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}

	l.seen[link] = struct{}{}
	return nil
}

func (l *File) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

func (l *File) Close() error { return nil }

// Package library keeps downloaded preprints on disk and catalogues their
// versions in SQLite.
package library

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	_ "modernc.org/sqlite"

	"github.com/csheth/pneo/internal/debuglog"
	"github.com/csheth/pneo/internal/paper"
)

const schema = `CREATE TABLE IF NOT EXISTS eprints (
	id TEXT NOT NULL,
	version INT NOT NULL,
	CONSTRAINT versions UNIQUE (id, version)
)`

// Opener hands a stored file to an external viewer.
type Opener interface {
	Open(path string) error
}

// Option customises a Library.
type Option func(*Library)

// WithVerifier replaces the PDF check run before a payload is stored.
func WithVerifier(verify func([]byte) error) Option {
	return func(l *Library) { l.verify = verify }
}

// WithOpener sets the viewer used by Open.
func WithOpener(o Opener) Option {
	return func(l *Library) { l.opener = o }
}

// Library is safe for concurrent use.
type Library struct {
	db     *sql.DB
	mu     sync.Mutex
	dir    string
	verify func([]byte) error
	opener Opener
}

// Open opens (or creates) the catalogue at dbPath and the preprint
// directory dir. dbPath may be ":memory:".
func Open(dbPath, dir string, opts ...Option) (*Library, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preprint directory: %w", err)
	}

	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:"
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	l := &Library{db: db, dir: dir, verify: VerifyPDF, opener: CommandOpener{}}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.init(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Library) init() error {
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("create eprints table: %w", err)
	}
	if err := l.migrateNotNull(); err != nil {
		debuglog.Errorf("[library] unable to migrate downloads: %v", err)
	}
	return nil
}

// migrateNotNull rebuilds catalogues created before the columns were
// declared NOT NULL.
func (l *Library) migrateNotNull() error {
	var ddl string
	if err := l.db.QueryRow(`SELECT sql FROM sqlite_master WHERE name = ?`, "eprints").Scan(&ddl); err != nil {
		return err
	}
	if strings.Contains(ddl, "NOT NULL") {
		return nil
	}
	debuglog.Infof("[library] migrating eprints table")

	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`ALTER TABLE eprints RENAME TO old_eprints`,
		schema,
		`INSERT INTO eprints SELECT * FROM old_eprints`,
		`DROP TABLE old_eprints`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return tx.Commit()
}

func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}

// Dir is where preprint files live.
func (l *Library) Dir() string { return l.dir }

// Lookup returns the file of the newest stored version of ref. An entry
// whose file has vanished is reported as an error.
func (l *Library) Lookup(ref string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var version int
	err := l.db.QueryRow(`SELECT version FROM eprints WHERE id = ? ORDER BY version DESC LIMIT 1`, ref).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %s: %w", ref, err)
	}

	path := filepath.Join(l.dir, FileName(ref, version))
	if _, err := os.Stat(path); err != nil {
		return "", false, fmt.Errorf("inconsistent cache, unable to find %s", path)
	}
	return path, true, nil
}

// Store validates pre, writes it next to the other preprints and records
// its version. It returns the file path.
func (l *Library) Store(ctx context.Context, entry paper.Entry, pre paper.Preprint) (string, error) {
	basename, version, err := Validate(pre.EntryID, pre.Ref, pre.URL)
	if err != nil {
		return "", err
	}
	if l.verify != nil {
		if err := l.verify(pre.Data); err != nil {
			return "", fmt.Errorf("%s is not a readable PDF: %w", pre.Ref, err)
		}
	}

	path := filepath.Join(l.dir, basename+".pdf")
	if err := writeFileAtomic(path, pre.Data); err != nil {
		return "", fmt.Errorf("unable to save preprint file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.db.ExecContext(ctx, `INSERT OR IGNORE INTO eprints (id, version) VALUES (?, ?)`, pre.Ref, version); err != nil {
		return "", fmt.Errorf("record %s v%d: %w", pre.Ref, version, err)
	}
	debuglog.Infof("[library] stored %s v%d for record %s at %s", pre.Ref, version, entry.ID, path)
	return path, nil
}

// Downloaded maps every stored identifier to its newest version.
func (l *Library) Downloaded() (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(`SELECT id, MAX(version) FROM eprints GROUP BY id`)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			id      string
			version int
		)
		if err := rows.Scan(&id, &version); err != nil {
			return nil, err
		}
		out[id] = version
	}
	return out, rows.Err()
}

// Open shows path in the configured viewer.
func (l *Library) Open(path string) error {
	return l.opener.Open(path)
}

// VerifyPDF checks that data parses as a PDF with at least one page.
func VerifyPDF(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	if r.NumPage() == 0 {
		return errors.New("document has no pages")
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preprint-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

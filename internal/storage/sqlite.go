package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps snapshots in a single kv table behind an async
// single-writer goroutine: loads are synchronous, saves are fire-and-forget
// through a request channel. This is the host save-channel shape: the
// caller never blocks on durability.
type SQLiteBackend struct {
	db *sql.DB

	ch   chan kvReq
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
	log    *slog.Logger
}

type kvKind int

const (
	kvSet kvKind = iota + 1
	kvRemove
	kvBarrier
)

type kvReq struct {
	kind  kvKind
	key   string
	value string
	done  chan struct{}
}

func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (unixepoch())
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	b := &SQLiteBackend{
		db:  db,
		ch:  make(chan kvReq, 128),
		log: slog.Default(),
	}
	b.wg.Add(1)
	go b.writer()
	return b, nil
}

func (b *SQLiteBackend) writer() {
	defer b.wg.Done()
	for req := range b.ch {
		switch req.kind {
		case kvSet:
			if _, err := b.db.Exec(
				`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, unixepoch())
				 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
				req.key, req.value,
			); err != nil {
				b.log.Error("sqlite write failed", "key", req.key, "error", err)
			}
		case kvRemove:
			if _, err := b.db.Exec(`DELETE FROM kv WHERE key = ?`, req.key); err != nil {
				b.log.Error("sqlite delete failed", "key", req.key, "error", err)
			}
		case kvBarrier:
			close(req.done)
		}
	}
}

func (b *SQLiteBackend) GetItem(key string) (string, bool, error) {
	var value string
	err := b.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (b *SQLiteBackend) SetItem(key, value string) error {
	if b.closed.Load() {
		return fmt.Errorf("sqlite backend closed")
	}
	b.ch <- kvReq{kind: kvSet, key: key, value: value}
	return nil
}

func (b *SQLiteBackend) RemoveItem(key string) error {
	if b.closed.Load() {
		return fmt.Errorf("sqlite backend closed")
	}
	b.ch <- kvReq{kind: kvRemove, key: key}
	return nil
}

// Barrier blocks until every write enqueued before it has been applied.
func (b *SQLiteBackend) Barrier() {
	if b.closed.Load() {
		return
	}
	done := make(chan struct{})
	b.ch <- kvReq{kind: kvBarrier, done: done}
	<-done
}

// Close drains pending writes and shuts the db.
func (b *SQLiteBackend) Close() error {
	var err error
	b.once.Do(func() {
		b.closed.Store(true)
		close(b.ch)
		b.wg.Wait()
		err = b.db.Close()
	})
	return err
}

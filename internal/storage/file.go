package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// FileBackend stores each key as one JSON document in the den directory,
// optionally zstd-compressed. Writes go through a temp file and rename so
// a crash never leaves a torn snapshot.
type FileBackend struct {
	dir      string
	compress bool

	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewFileBackend(dir string, compress bool) (*FileBackend, error) {
	f := &FileBackend{dir: dir, compress: compress}
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("failed to init zstd encoder: %w", err)
		}
		f.enc = enc
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init zstd decoder: %w", err)
	}
	f.dec = dec
	return f, nil
}

func (f *FileBackend) plainPath(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileBackend) zstPath(key string) string {
	return filepath.Join(f.dir, key+".json.zst")
}

func (f *FileBackend) GetItem(key string) (string, bool, error) {
	// Read whichever form exists so flipping the compress setting never
	// strands an old snapshot.
	if data, err := os.ReadFile(f.zstPath(key)); err == nil {
		raw, err := f.dec.DecodeAll(data, nil)
		if err != nil {
			return "", false, fmt.Errorf("failed to decompress %s: %w", key, err)
		}
		return string(raw), true, nil
	}

	data, err := os.ReadFile(f.plainPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), true, nil
}

func (f *FileBackend) SetItem(key, value string) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("failed to create den directory: %w", err)
	}

	path := f.plainPath(key)
	payload := []byte(value)
	if f.compress {
		path = f.zstPath(key)
		payload = f.enc.EncodeAll(payload, nil)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}

	// Drop the stale other form, if any.
	stale := f.zstPath(key)
	if f.compress {
		stale = f.plainPath(key)
	}
	_ = os.Remove(stale)
	return nil
}

func (f *FileBackend) RemoveItem(key string) error {
	var firstErr error
	for _, p := range []string{f.plainPath(key), f.zstPath(key)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}
	return firstErr
}

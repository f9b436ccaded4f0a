package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const fileExt = ".json"

// FileCache implements Service on a directory tree. Each key segment is a
// directory level and the last segment names a JSON file, so
// "indicators:US:AAPL:1d" lives at <dir>/indicators/US/AAPL/1d.json.
//
// Expiration is ignored: records carry their own timestamps.
type FileCache struct {
	dir      string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

// NewFileCache creates the root directory if needed.
func NewFileCache(opts ...FileOption) (*FileCache, error) {
	cfg := &FileConfig{
		Dir:      "data/cache",
		DirPerm:  0o755,
		FilePerm: 0o644,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := os.MkdirAll(cfg.Dir, os.FileMode(cfg.DirPerm)); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &FileCache{
		dir:      cfg.Dir,
		dirPerm:  os.FileMode(cfg.DirPerm),
		filePerm: os.FileMode(cfg.FilePerm),
	}, nil
}

// Dir returns the cache root.
func (fc *FileCache) Dir() string { return fc.dir }

func (fc *FileCache) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := fc.keyPath(key, false)
	if err != nil {
		return err
	}
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), fc.dirPerm); err != nil {
		return err
	}

	// write-then-rename so readers never observe a partial file
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, fc.filePerm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (fc *FileCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := fc.keyPath(key, false)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrCacheMiss
		}
		return err
	}
	return decode(data, dest)
}

func (fc *FileCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := fc.keyPath(key, false)
		if err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (fc *FileCache) DeleteByPattern(ctx context.Context, pattern string) error {
	entries, err := fc.Scan(ctx, pattern)
	if err != nil {
		return err
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return fc.Delete(ctx, keys...)
}

func (fc *FileCache) Scan(ctx context.Context, pattern string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	glob, err := fc.keyPath(pattern, true)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(glob)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		rel, err := filepath.Rel(fc.dir, m)
		if err != nil {
			continue
		}
		segs := strings.Split(strings.TrimSuffix(filepath.ToSlash(rel), fileExt), "/")
		for i, seg := range segs {
			if raw, err := url.PathUnescape(seg); err == nil {
				segs[i] = raw
			}
		}
		out = append(out, Entry{Key: strings.Join(segs, KeySeparator), Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (fc *FileCache) Close() error { return nil }

func (fc *FileCache) keyPath(key string, glob bool) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	parts := strings.Split(key, KeySeparator)
	for i, seg := range parts {
		s := escapeSegment(seg, glob)
		if s == "" {
			return "", fmt.Errorf("%w: empty segment in %q", ErrInvalidKey, key)
		}
		parts[i] = s
	}
	parts[len(parts)-1] += fileExt
	return filepath.Join(append([]string{fc.dir}, parts...)...), nil
}

// escapeSegment keeps [A-Za-z0-9._-] and percent-encodes every other byte,
// so distinct segments never share a path and Scan can recover the key.
// Glob metacharacters survive when glob is set.
func escapeSegment(seg string, glob bool) string {
	if seg == "." || seg == ".." {
		return strings.Repeat("%2E", len(seg))
	}
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '-', c == '_':
			b.WriteByte(c)
		case glob && (c == '*' || c == '?'):
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFileCacheLayout(t *testing.T) {
	dir := t.TempDir()
	fc, err := NewFileCache(WithFileDir(dir))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	want := record{Name: "macd", Value: -0.25}
	if err := fc.Set(ctx, "indicators:US:AAPL:1d", want, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "indicators", "US", "AAPL", "1d.json")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	var got record
	if err := fc.Get(ctx, "indicators:US:AAPL:1d", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := fc.Get(ctx, "indicators:US:MSFT:1d", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestFileCacheEscapesSegments(t *testing.T) {
	dir := t.TempDir()
	fc, _ := NewFileCache(WithFileDir(dir))
	ctx := context.Background()

	keys := []string{
		"indicators:US:../../etc:1d",
		"indicators:US:..:1d",
		"indicators:US:BRK/B:1d",
		"indicators:US:BRK_B:1d",
		"indicators:US:BRK%2FB:1d",
	}
	for _, k := range keys {
		if err := fc.Set(ctx, k, record{Name: k}, 0); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "indicators", "US", "BRK%2FB", "1d.json")); err != nil {
		t.Fatalf("expected escaped path: %v", err)
	}
	for _, k := range keys {
		var got record
		if err := fc.Get(ctx, k, &got); err != nil || got.Name != k {
			t.Fatalf("get %s: %+v %v", k, got, err)
		}
	}

	entries, err := fc.Scan(ctx, BuildPattern("indicators", 3))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var scanned []string
	for _, e := range entries {
		scanned = append(scanned, e.Key)
	}
	want := []string{
		"indicators:US:../../etc:1d",
		"indicators:US:..:1d",
		"indicators:US:BRK%2FB:1d",
		"indicators:US:BRK/B:1d",
		"indicators:US:BRK_B:1d",
	}
	if diff := cmp.Diff(want, scanned); diff != "" {
		t.Fatalf("scanned keys (-want +got):\n%s", diff)
	}
	if err := fc.Set(ctx, "indicators::x", record{}, 0); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected invalid key, got %v", err)
	}
}

func TestFileCacheScanAndDelete(t *testing.T) {
	fc, _ := NewFileCache(WithFileDir(t.TempDir()))
	ctx := context.Background()

	for _, k := range []string{
		"indicators:US:AAPL:1d",
		"indicators:US:AAPL:1h",
		"indicators:US:MSFT:1d",
		"indicators:HK:0700:1d",
	} {
		if err := fc.Set(ctx, k, record{Name: k}, 0); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	all, err := fc.Scan(ctx, BuildPattern("indicators", 3))
	if err != nil || len(all) != 4 {
		t.Fatalf("scan all: %+v %v", all, err)
	}
	if TotalSize(all) <= 0 {
		t.Fatal("expected positive total size")
	}

	if err := fc.DeleteByPattern(ctx, BuildPattern("indicators:US", 2)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	left, _ := fc.Scan(ctx, BuildPattern("indicators", 3))
	if len(left) != 1 || left[0].Key != "indicators:HK:0700:1d" {
		t.Fatalf("left: %+v", left)
	}
	if err := fc.Delete(ctx, "indicators:US:AAPL:1d"); err != nil {
		t.Fatalf("deleting a missing key should succeed: %v", err)
	}
}

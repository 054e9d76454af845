package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "results/a.png", want: "results/a.png"},
		{in: "/abs/b.png", want: "abs/b.png"},
		{in: `win\c.png`, want: "win/c.png"},
		{in: "./d.png", want: "d.png"},
		{in: "x/../e.png", want: "e.png"},
		{in: "../escape.png", wantErr: true},
		{in: "..", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestFileStoreWriteReadList(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	key, err := store.Write(ctx, "b.png", []byte("bbb"))
	if err != nil || key != "b.png" {
		t.Fatalf("Write: %q %v", key, err)
	}
	if _, err := store.Write(ctx, "nested/c.png", []byte("ccc")); err != nil {
		t.Fatalf("Write nested: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("aaa"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	data, err := store.Read(ctx, "nested/c.png")
	if err != nil || string(data) != "ccc" {
		t.Fatalf("Read: %q %v", data, err)
	}
	if _, err := store.Read(ctx, "missing.png"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a.jpg" || keys[1] != "b.png" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestFileStoreHonoursContext(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Write(ctx, "a.png", nil); err == nil {
		t.Fatalf("expected context error")
	}
}

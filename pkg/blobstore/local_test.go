package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"noticeboard/pkg/apperror"
	"noticeboard/pkg/logger"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStore(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return s
}

func readAll(t *testing.T, s Storage, key string) []byte {
	t.Helper()
	rc, err := s.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("Load(%q): %v", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %q: %v", key, err)
	}
	return data
}

func TestLocalStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name string
		data []byte
	}{
		{"notes.txt", []byte("0123456789")},
		{"보고서 최종.pdf", []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}},
		{"../../etc/passwd", []byte("not really")},
		{"C:\\Users\\me\\photo.png", bytes.Repeat([]byte("x"), 64*1024)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := s.Store(ctx, bytes.NewReader(tc.data), tc.name)
			if err != nil {
				t.Fatalf("Store: %v", err)
			}
			if got := readAll(t, s, key); !bytes.Equal(got, tc.data) {
				t.Errorf("loaded %d bytes, want %d", len(got), len(tc.data))
			}
			if _, err := os.Stat(filepath.Join(s.Root(), key)); err != nil {
				t.Errorf("blob not inside root: %v", err)
			}
		})
	}
}

func TestLocalStore_CreatesRootOnFirstUse(t *testing.T) {
	s := newTestStore(t)
	if _, err := os.Stat(s.Root()); !os.IsNotExist(err) {
		t.Fatalf("root should not exist before first store, stat err = %v", err)
	}
	if _, err := s.Store(context.Background(), strings.NewReader("a"), "a.txt"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if info, err := os.Stat(s.Root()); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestLocalStore_SameNameDistinctKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	k1, err := s.Store(ctx, strings.NewReader("first"), "same.txt")
	if err != nil {
		t.Fatalf("Store first: %v", err)
	}
	k2, err := s.Store(ctx, strings.NewReader("second"), "same.txt")
	if err != nil {
		t.Fatalf("Store second: %v", err)
	}
	if k1 == k2 {
		t.Fatalf("keys must differ, both %q", k1)
	}
	if !strings.HasSuffix(k1, "_same.txt") {
		t.Errorf("key %q should keep the original name as suffix", k1)
	}
	if got := string(readAll(t, s, k1)); got != "first" {
		t.Errorf("k1 = %q, want first", got)
	}
	if got := string(readAll(t, s, k2)); got != "second" {
		t.Errorf("k2 = %q, want second", got)
	}
}

func TestLocalStore_RejectsInvalidInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Store(ctx, bytes.NewReader(nil), "empty.txt"); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Errorf("empty content: err = %v, want InvalidInput", err)
	}
	if _, err := s.Store(ctx, strings.NewReader("data"), "   "); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Errorf("blank name: err = %v, want InvalidInput", err)
	}

	for _, key := range []string{"", "..", "../outside.txt", "sub/dir.txt", `..\win.txt`} {
		if _, err := s.Load(ctx, key); !errors.Is(err, apperror.ErrInvalidInput) {
			t.Errorf("Load(%q): err = %v, want InvalidInput", key, err)
		}
	}
}

func TestLocalStore_LoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load(context.Background(), "does-not-exist.txt")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestLocalStore_DeleteIsBestEffort(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key, err := s.Store(ctx, strings.NewReader("bye"), "bye.txt")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, key); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: err = %v, want NotFound", err)
	}
	// 重复删除不报错
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"notes.txt":         "notes.txt",
		"my report (1).pdf": "my_report__1_.pdf",
		"../../etc/passwd":  "passwd",
		`C:\tmp\evil.exe`:   "evil.exe",
		"...":               "file",
		"공지.txt":            "__.txt",
	}
	cases[strings.Repeat("a", 300)+".log"] = strings.Repeat("a", maxNameLen-4) + ".log"

	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/nestmaid/internal/apperr"
)

func tempVault(t *testing.T, opts ...FSOption) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, opts...)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("flowchart TD\n  A --> B\n")
	if err := s.Write("flow.mmd", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("flow.mmd")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("a/b/c.mmd", []byte("pie")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.mmd")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "pie" {
		t.Errorf("content = %q", got)
	}
}

func TestDeleteAndMove(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old.mmd", []byte("gantt"))
	if err := s.Move("old.mmd", "sub/new.mmd"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := s.Read("old.mmd"); err == nil {
		t.Error("old path should not exist")
	}
	if err := s.Delete("sub/new.mmd"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("sub/new.mmd"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestList_Extensions(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.mmd", []byte("pie"))
	_ = s.Write("sub/b.mermaid", []byte("gantt"))
	_ = s.Write("c.MD", []byte("journey"))
	_ = s.Write("readme.txt", []byte("not a diagram"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("len = %d, want 3: %+v", len(items), items)
	}
	for _, it := range items {
		if len(it.Checksum) != 64 {
			t.Errorf("%s: checksum = %q", it.Path, it.Checksum)
		}
	}
}

func TestList_CustomExtensionsAndIgnore(t *testing.T) {
	s := tempVault(t, WithExtensions("mmd"), WithIgnore("drafts/**", "*.tmp.mmd"))
	_ = s.Write("keep.mmd", []byte("pie"))
	_ = s.Write("drafts/x/skip.mmd", []byte("pie"))
	_ = s.Write("skip.tmp.mmd", []byte("pie"))
	_ = s.Write("skip.md", []byte("pie"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "keep.mmd" {
		t.Errorf("items = %+v, want only keep.mmd", items)
	}
	if s.IsDocument(filepath.Join("drafts", "a.mmd")) {
		t.Error("ignored path reported as document")
	}
}

func TestNewFS_BadIgnorePattern(t *testing.T) {
	if _, err := NewFS(t.TempDir(), WithIgnore("[")); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.mmd",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("read %q: err = %v, want ErrInvalidPath", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("atomic.mmd", []byte("pie"))
	if err := s.Write("atomic.mmd", []byte("gantt")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.mmd")
	if string(got) != "gantt" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".nestmaid-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS("/tmp/nestmaid-does-not-exist-" + t.Name()); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "nestmaid-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

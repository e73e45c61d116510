package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileModeIgnoresUmask(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "rules")
	dst := filepath.Join(dir, "rules.copy")

	if err := os.WriteFile(src, []byte("#!/usr/bin/make -f\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileMode(src, dst, 0o775); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o775 {
		t.Fatalf("expected mode 0775, got %o", info.Mode().Perm())
	}
}

func TestCopyTreePreservesStructureAndModes(t *testing.T) {
	src := filepath.Join(t.TempDir(), "debian")
	mustWrite(t, filepath.Join(src, "rules"), "build:\n", 0o755)
	mustWrite(t, filepath.Join(src, "changelog"), "helix (24.07-1) noble; urgency=medium\n", 0o644)
	mustWrite(t, filepath.Join(src, "source", "format"), "3.0 (quilt)\n", 0o644)
	if err := os.Symlink("changelog", filepath.Join(src, "NEWS")); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(t.TempDir(), "staged")
	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}

	assertMode(t, filepath.Join(dst, "rules"), 0o755)
	assertMode(t, filepath.Join(dst, "changelog"), 0o644)
	if data, err := os.ReadFile(filepath.Join(dst, "source", "format")); err != nil || string(data) != "3.0 (quilt)\n" {
		t.Fatalf("unexpected nested content %q err=%v", data, err)
	}
	if link, err := os.Readlink(filepath.Join(dst, "NEWS")); err != nil || link != "changelog" {
		t.Fatalf("expected symlink to be recreated, got %q err=%v", link, err)
	}
}

func TestCopyTreeRefusesExistingDestination(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	if err := CopyTree(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
}

func TestMoveDir(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "debian")
	mustWrite(t, filepath.Join(src, "control"), "Source: helix\n", 0o644)
	dst := filepath.Join(base, "helix-25.01", "debian")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := MoveDir(src, dst); err != nil {
		t.Fatalf("MoveDir: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "control")); err != nil {
		t.Fatalf("expected moved file: %v", err)
	}

	if err := os.Mkdir(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := MoveDir(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist when destination present, got %v", err)
	}
}

func mustWrite(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, mode); err != nil {
		t.Fatal(err)
	}
}

func assertMode(t *testing.T, path string, want os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != want {
		t.Fatalf("%s: expected mode %o, got %o", path, want, info.Mode().Perm())
	}
}

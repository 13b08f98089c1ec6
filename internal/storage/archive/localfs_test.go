// internal/storage/archive/localfs_test.go
package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFS(dir)
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	ctx := context.Background()
	data := []byte("Account,Closed PnL\nA,10\n")

	if err := fs.Write(ctx, "inputs/trades.csv", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := fs.Read(ctx, "inputs/trades.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestLocalFS_ReadAbsolutePath(t *testing.T) {
	outside := filepath.Join(t.TempDir(), "sentiment.csv")
	if err := os.WriteFile(outside, []byte("date,classification\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fs, _ := NewLocalFS(t.TempDir())
	got, err := fs.Read(context.Background(), outside)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "date,classification\n" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestLocalFS_ReadMissing(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	if _, err := fs.Read(context.Background(), "nope.csv"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLocalFS_Exists(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	exists, _ := fs.Exists(ctx, "nonexistent.txt")
	if exists {
		t.Error("expected false for nonexistent file")
	}

	fs.Write(ctx, "exists.txt", []byte("data"))
	exists, _ = fs.Exists(ctx, "exists.txt")
	if !exists {
		t.Error("expected true for existing file")
	}
}

func TestLocalFS_List(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Write(ctx, "reports/20240102T000000-b/report.txt", []byte("b"))
	fs.Write(ctx, "reports/20240101T000000-a/report.txt", []byte("a"))
	fs.Write(ctx, "other/c.txt", []byte("c"))

	paths, err := fs.List(ctx, "reports")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []string{
		"reports/20240101T000000-a/report.txt",
		"reports/20240102T000000-b/report.txt",
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %v", len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestLocalFS_ListMissingPrefix(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	paths, err := fs.List(context.Background(), "missing")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no paths, got %v", paths)
	}
}

func TestLocalFS_Delete(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Write(ctx, "delete.txt", []byte("data"))
	fs.Delete(ctx, "delete.txt")

	exists, _ := fs.Exists(ctx, "delete.txt")
	if exists {
		t.Error("file should be deleted")
	}
}

package fsutil

import (
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_WriteWith(t *testing.T) {
	fs := OSFileSystem{}
	path := filepath.Join(t.TempDir(), "nested", "parts.csv")

	err := WriteWith(fs, path, func(w io.Writer) error {
		_, err := io.WriteString(w, "Part Type,Coordinates\n")
		return err
	})
	if err != nil {
		t.Fatalf("WriteWith failed: %v", err)
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "Part Type,Coordinates\n" {
		t.Errorf("got %q", data)
	}
}

func TestMemoryFileSystem_CreateAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/created.txt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("created content")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := mfs.ReadFile("/out/created.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "created content" {
		t.Errorf("expected 'created content', got %q", data)
	}

	r, err := mfs.Open("/out/created.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if string(got) != "created content" {
		t.Errorf("Open read %q", got)
	}
}

func TestMemoryFileSystem_WriteAfterClose(t *testing.T) {
	mfs := NewMemoryFileSystem()
	w, _ := mfs.Create("a.txt")
	w.Close()

	if _, err := w.Write([]byte("x")); err == nil {
		t.Error("expected write after close to fail")
	}
	if err := w.Close(); err == nil {
		t.Error("expected double close to fail")
	}
}

func TestMemoryFileSystem_OpenMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if _, err := mfs.Open("missing.txt"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := mfs.ReadFile("missing.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMemoryFileSystem_MkdirAllAndExists(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("out/layers", 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	for _, p := range []string{"out", "out/layers"} {
		if !mfs.Exists(p) {
			t.Errorf("expected %s to exist", p)
		}
	}
	if mfs.Exists("other") {
		t.Error("unexpected directory")
	}

	if _, err := mfs.Create("out"); err == nil {
		t.Error("expected creating a file over a directory to fail")
	}

	mfs.WriteFile("file.txt", []byte("x"))
	if err := mfs.MkdirAll("file.txt", 0o755); err == nil {
		t.Error("expected mkdir over a file to fail")
	}
}

func TestMemoryFileSystem_Files(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("out/b.csv", nil)
	mfs.WriteFile("out/layers/layer_000.png", nil)
	mfs.WriteFile("out/a.csv", nil)
	mfs.WriteFile("input.csv", nil)

	want := []string{"out/a.csv", "out/b.csv", "out/layers/layer_000.png"}
	if got := mfs.Files("out"); !reflect.DeepEqual(got, want) {
		t.Errorf("Files(out) = %v, want %v", got, want)
	}
	if got := mfs.Files("."); len(got) != 4 {
		t.Errorf("Files(.) = %v", got)
	}
}

func TestWriteWith_PropagatesWriteError(t *testing.T) {
	mfs := NewMemoryFileSystem()
	boom := errors.New("boom")

	err := WriteWith(mfs, "out/x.csv", func(io.Writer) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if !mfs.Exists("out") {
		t.Error("expected parent directory to be created")
	}
}

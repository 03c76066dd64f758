package index

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/pathutil"
)

// buildTestRoot creates the layout used across the listing tests:
//
//	root/a.png
//	root/b.txt
//	root/.hidden.png
//	root/x/c.jpg
//	root/x/nested/d.png   (nested dirs are never descended into)
//	root/empty/
//	root/.git/
func buildTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "a.png"))
	writeFile(t, filepath.Join(root, "b.txt"))
	writeFile(t, filepath.Join(root, ".hidden.png"))

	mkdir(t, filepath.Join(root, "x"))
	writeFile(t, filepath.Join(root, "x", "c.jpg"))
	mkdir(t, filepath.Join(root, "x", "nested"))
	writeFile(t, filepath.Join(root, "x", "nested", "d.png"))

	mkdir(t, filepath.Join(root, "empty"))
	mkdir(t, filepath.Join(root, ".git"))

	return root
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}
}

func TestSubfolders(t *testing.T) {
	root := buildTestRoot(t)
	ix := New(root)

	got := ix.Subfolders()
	want := []string{"", "empty", "x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Subfolders() = %v, want %v", got, want)
	}
}

func TestSubfoldersMissingRoot(t *testing.T) {
	ix := New(filepath.Join(t.TempDir(), "gone"))
	got := ix.Subfolders()
	if !reflect.DeepEqual(got, []string{""}) {
		t.Errorf("Subfolders() = %v, want just the root sentinel", got)
	}
}

func TestImagesRoot(t *testing.T) {
	root := buildTestRoot(t)
	ix := New(root)

	got, err := ix.Images("")
	if err != nil {
		t.Fatalf("Images(\"\") failed: %v", err)
	}
	want := []string{"a.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Images(\"\") = %v, want %v", got, want)
	}
}

func TestImagesSubfolder(t *testing.T) {
	root := buildTestRoot(t)
	ix := New(root)

	got, err := ix.Images("x")
	if err != nil {
		t.Fatalf("Images(\"x\") failed: %v", err)
	}
	want := []string{"c.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Images(\"x\") = %v, want %v", got, want)
	}
}

func TestImagesEmptySubfolder(t *testing.T) {
	root := buildTestRoot(t)
	ix := New(root)

	got, err := ix.Images("empty")
	if err != nil {
		t.Fatalf("Images(\"empty\") failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Images(\"empty\") = %v, want empty listing", got)
	}
	if got == nil {
		t.Error("Images(\"empty\") returned nil, want non-nil empty slice")
	}
}

func TestImagesMissingSubfolder(t *testing.T) {
	root := buildTestRoot(t)
	ix := New(root)

	got, err := ix.Images("vanished")
	if err != nil {
		t.Fatalf("Images(\"vanished\") failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Images(\"vanished\") = %v, want empty listing", got)
	}
}

func TestImagesInvalidSubfolder(t *testing.T) {
	root := buildTestRoot(t)
	ix := New(root)

	for _, bad := range []string{"..", "../x", "a/b", "\x00"} {
		if _, err := ix.Images(bad); !errors.Is(err, pathutil.ErrInvalidPath) {
			t.Errorf("Images(%q) error = %v, want ErrInvalidPath", bad, err)
		}
	}
}

func TestImagesCaseInsensitiveExtensions(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"A.PNG", "b.Jpg", "c.TIFF", "d.tif", "e.TXT"} {
		writeFile(t, filepath.Join(root, name))
	}

	got, err := New(root).Images("")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"A.PNG", "b.Jpg", "c.TIFF", "d.tif"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Images(\"\") = %v, want %v", got, want)
	}
}

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.png", true},
		{"a.webp", true},
		{"a.BMP", true},
		{"a.jpeg", true},
		{"a.txt", false},
		{"a.png.txt", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsImageFile(tt.name); got != tt.want {
			t.Errorf("IsImageFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

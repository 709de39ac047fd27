package rom

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatalf("writeFile %s: %v", name, err)
	}
}

func TestLoadBankedConcatenatesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "invaders.h", []byte{0x01})
	writeFile(t, dir, "invaders.g", []byte{0x02})
	writeFile(t, dir, "invaders.f", []byte{0x03})
	writeFile(t, dir, "invaders.e", []byte{0x04})

	image, err := LoadBanked(dir, "invaders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x01, 0x02, 0x03, 0x04}
	if len(image) != len(want) {
		t.Fatalf("got %v, want %v", image, want)
	}
	for i := range want {
		if image[i] != want[i] {
			t.Fatalf("got %v, want %v", image, want)
		}
	}
}

func TestDiscoverPrefersBankedSet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "invaders.h", []byte{0xAA})
	writeFile(t, dir, "invaders.g", []byte{0xBB})
	writeFile(t, dir, "invaders.f", []byte{0xCC})
	writeFile(t, dir, "invaders.e", []byte{0xDD})
	writeFile(t, dir, "invaders.bin", []byte{0x00, 0x00, 0x00, 0x00})

	image, err := Discover(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(image) != 4 || image[0] != 0xAA {
		t.Fatalf("got %v, want the banked set", image)
	}
}

func TestDiscoverFallsBackToSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "invaders.bin", []byte{0x11, 0x22})

	image, err := Discover(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(image) != 2 || image[0] != 0x11 {
		t.Fatalf("got %v, want invaders.bin contents", image)
	}
}

func TestDiscoverReportsNotFound(t *testing.T) {
	dir := t.TempDir()

	_, err := Discover(dir)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want *NotFoundError", err)
	}
}

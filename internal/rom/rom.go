// Package rom locates and assembles the Space Invaders ROM image. The
// original board shipped the program across four 2KB EPROMs (conventionally
// named invaders.h, invaders.g, invaders.f, invaders.e); most dumps in the
// wild are either those four files or a single pre-concatenated invaders.bin.
// Unlike the teacher's cartridge loader, every failure here is a returned
// error — main.go decides whether that's fatal, not this package.
package rom

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// bankSuffixes gives the four bank files in load order: h at 0x0000, g at
// 0x0800, f at 0x1000, e at 0x1800.
var bankSuffixes = []string{".h", ".g", ".f", ".e"}

// NotFoundError reports that no recognizable ROM image was found in a
// directory.
type NotFoundError struct {
	Dir string
}

func (e *NotFoundError) Error() string {
	return "rom: no invaders.bin or invaders.{h,g,f,e} bank set found in " + e.Dir
}

// LoadSingleFile reads a single pre-concatenated ROM image (normally 8KB)
// from path.
func LoadSingleFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "rom: read %s", path)
	}
	return data, nil
}

// LoadBanked reads the four bank files sharing stem (e.g. "invaders" for
// invaders.h/.g/.f/.e found alongside each other in dir) and concatenates
// them in h,g,f,e order into one contiguous 8KB image.
func LoadBanked(dir, stem string) ([]byte, error) {
	var image []byte
	for _, suffix := range bankSuffixes {
		path := filepath.Join(dir, stem+suffix)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "rom: read bank %s", path)
		}
		image = append(image, data...)
	}
	return image, nil
}

// Discover searches dir for a usable ROM image, preferring a banked set
// (since that's how the original EPROM dump is commonly distributed) over a
// single invaders.bin.
func Discover(dir string) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "rom: read dir %s", dir)
	}

	stems := map[string]int{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		for _, suffix := range bankSuffixes {
			if ext == suffix {
				stems[name[:len(name)-len(ext)]]++
			}
		}
	}
	for stem, count := range stems {
		if count == len(bankSuffixes) {
			return LoadBanked(dir, stem)
		}
	}

	binPath := filepath.Join(dir, "invaders.bin")
	if _, err := os.Stat(binPath); err == nil {
		return LoadSingleFile(binPath)
	}

	return nil, errors.WithStack(&NotFoundError{Dir: dir})
}

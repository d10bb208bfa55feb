// Package trash moves files into the desktop trash instead of deleting
// them. The platform work is done by wastebasket: the freedesktop.org
// home and per-volume trash directories on Linux and BSD, Finder on
// macOS and the recycle bin on Windows.
package trash

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Bios-Marcel/wastebasket/v2"
)

// Bin moves paths into the user's trash.
type Bin struct {
	move func(paths ...string) error
}

// Default returns the platform trash.
func Default() *Bin {
	return &Bin{move: wastebasket.Trash}
}

// Trash moves path into the trash. A missing path is an error so a caller
// never counts bytes it did not free.
func (b *Bin) Trash(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if _, err := os.Lstat(abs); err != nil {
		return fmt.Errorf("trashing %s: %w", abs, err)
	}
	if err := b.move(abs); err != nil {
		return fmt.Errorf("moving %s to trash: %w", abs, err)
	}
	return nil
}

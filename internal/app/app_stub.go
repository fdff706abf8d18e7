//go:build !ebiten

package app

import (
	"errors"

	"sandpile/internal/runner"
)

// ErrNoGUI is returned by Run when the binary was built without the
// 'ebiten' tag.
var ErrNoGUI = errors.New("gui driver requires building with -tags ebiten")

// Run reports that the GUI is unavailable in this build.
func Run(*runner.Session, *runner.Sinks, int) error { return ErrNoGUI }

package tui

import (
	"fmt"
	"io"
)

// PrintOnce writes a single snapshot for non-interactive output.
func PrintOnce(w io.Writer, load Loader, details bool) error {
	snap, err := load()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, Render(snap, details, 0))
	return err
}

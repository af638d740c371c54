//go:build !unix

package console

import (
	"io"
	"os"
)

// KeyReader has no non-blocking stdin on this platform and reports EOF,
// which leaves cancellation to signals.
type KeyReader struct{}

// NewKeyReader returns a reader that never yields keys.
func NewKeyReader(*os.File) *KeyReader { return &KeyReader{} }

// ReadKey always returns io.EOF.
func (*KeyReader) ReadKey() (rune, bool, error) { return 0, false, io.EOF }

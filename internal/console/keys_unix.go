//go:build unix

package console

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

// KeyReader polls a line-buffered input for quit commands. The terminal
// stays in canonical mode, so a key is seen once Enter is pressed. Each
// non-blank line yields its first rune.
type KeyReader struct {
	fd      int
	pending []byte
	eof     bool
	buf     [256]byte
}

// NewKeyReader returns a reader over f, usually os.Stdin.
func NewKeyReader(f *os.File) *KeyReader {
	return &KeyReader{fd: int(f.Fd())}
}

// ReadKey returns the next key without blocking. ok is false when no
// complete line is buffered. io.EOF is returned once the input is closed
// and drained.
func (k *KeyReader) ReadKey() (rune, bool, error) {
	if r, ok := k.nextLine(); ok {
		return r, true, nil
	}
	if k.eof {
		return 0, false, io.EOF
	}

	if err := k.drain(); err != nil {
		return 0, false, err
	}

	if r, ok := k.nextLine(); ok {
		return r, true, nil
	}
	if k.eof {
		return 0, false, io.EOF
	}
	return 0, false, nil
}

// drain reads whatever is available without blocking. select is used
// rather than poll because poll does not support ttys on darwin.
func (k *KeyReader) drain() error {
	for !k.eof {
		var fds unix.FdSet
		fds.Set(k.fd)
		n, err := unix.Select(k.fd+1, &fds, nil, nil, &unix.Timeval{})
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				return nil
			}
			return err
		}
		if n == 0 || !fds.IsSet(k.fd) {
			return nil
		}

		read, err := unix.Read(k.fd, k.buf[:])
		switch {
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
			return nil
		case err != nil:
			return err
		case read == 0:
			k.eof = true
		default:
			k.pending = append(k.pending, k.buf[:read]...)
		}
	}
	return nil
}

// nextLine consumes buffered lines until one is non-blank. An unterminated
// tail only counts after EOF.
func (k *KeyReader) nextLine() (rune, bool) {
	for len(k.pending) > 0 {
		idx := bytes.IndexByte(k.pending, '\n')
		var line []byte
		if idx < 0 {
			if !k.eof {
				return 0, false
			}
			line, k.pending = k.pending, nil
		} else {
			line, k.pending = k.pending[:idx], k.pending[idx+1:]
		}

		text := strings.TrimSpace(string(line))
		if text == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(text)
		return r, true
	}
	return 0, false
}

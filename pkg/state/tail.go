package state

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const (
	defaultTailLines = 200
	defaultTailBytes = 4 << 20
	tailChunk        = 32 << 10
)

// TailLines returns the last n lines of path, reading backwards from the end
// in chunks and never more than maxBytes in total.
func TailLines(path string, n int, maxBytes int64) ([]string, error) {
	if path == "" {
		return nil, errors.New("missing path")
	}
	if n <= 0 {
		n = defaultTailLines
	}
	if maxBytes <= 0 {
		maxBytes = defaultTailBytes
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat")
	}
	end := info.Size()
	floor := int64(0)
	if end > maxBytes {
		floor = end - maxBytes
	}

	var buf []byte
	pos := end
	for pos > floor && bytes.Count(buf, []byte{'\n'}) <= n {
		size := int64(tailChunk)
		if pos-floor < size {
			size = pos - floor
		}
		pos -= size
		chunk := make([]byte, size)
		if _, err := f.ReadAt(chunk, pos); err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "read")
		}
		buf = append(chunk, buf...)
	}

	// The first line is partial unless we reached the start of the file.
	if pos > 0 {
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			buf = buf[i+1:]
		} else {
			buf = nil
		}
	}

	text := strings.TrimSuffix(string(buf), "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = append([]string(nil), lines[len(lines)-n:]...)
	}
	return lines, nil
}

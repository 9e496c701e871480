package search

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// lineReader splits decoded text into lines without terminators and
// remembers which terminator the text uses.
type lineReader struct {
	r        *bufio.Reader
	ending   string
	trailing bool
	n        int
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024), ending: "\n"}
}

// Next returns the next line and its 1-based number; ok is false at the end
func (lr *lineReader) Next() (line string, lineNo int, ok bool, err error) {
	s, err := lr.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", 0, false, err
	}
	if s == "" && err == io.EOF {
		return "", 0, false, nil
	}

	lr.trailing = strings.HasSuffix(s, "\n")
	if lr.trailing {
		s = s[:len(s)-1]
		if strings.HasSuffix(s, "\r") {
			s = s[:len(s)-1]
			if lr.n == 0 {
				lr.ending = "\r\n"
			}
		}
	}
	lr.n++
	return s, lr.n, true, nil
}

// lineSet is the full content of a file as lines plus its terminator style
type lineSet struct {
	lines    []string
	ending   string
	trailing bool
}

// readLineSet reads every line of path with the given encoding
func readLineSet(ctx context.Context, path string, enc Encoding) (*lineSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := enc.NewDecoder(f)
	if err != nil {
		return nil, err
	}

	lr := newLineReader(dec)
	set := &lineSet{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, _, ok, err := lr.Next()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if !ok {
			break
		}
		set.lines = append(set.lines, line)
	}
	set.ending = lr.ending
	set.trailing = lr.trailing
	return set, nil
}

// writeLineSet replaces path atomically with the encoded lines, keeping the
// original file mode. Every line gets the same terminator.
func writeLineSet(path string, enc Encoding, set *lineSet) (err error) {
	mode := os.FileMode(0o644)
	if fi, statErr := os.Stat(path); statErr == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".far_replace_*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	w, err := enc.NewEncoder(bw)
	if err != nil {
		return err
	}
	for i, line := range set.lines {
		if _, err = io.WriteString(w, line); err != nil {
			return fmt.Errorf("encoding line %d: %w", i+1, err)
		}
		if i < len(set.lines)-1 || set.trailing {
			if _, err = io.WriteString(w, set.ending); err != nil {
				return fmt.Errorf("encoding line %d: %w", i+1, err)
			}
		}
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("flushing encoder: %w", err)
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flushing temp file: %w", err)
	}
	if err = tmp.Chmod(mode); err != nil {
		return fmt.Errorf("setting mode: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing file: %w", err)
	}
	return nil
}

package search

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"
	"github.com/ledongthuc/pdf"
)

// ErrMalformedContainer marks a container file that could not be parsed
var ErrMalformedContainer = errors.New("malformed container")

// Container searches the entries of a multi-document file. Results it emits
// always carry an Entry and are never rewritten.
type Container interface {
	// Extensions returns the lower-case file extensions handled, with the dot
	Extensions() []string
	// Scan matches every text entry of the container at path
	Scan(ctx context.Context, path string, globs *GlobSet, m Matcher, emit func(SearchResult) error) error
}

// ContainerRegistry maps file extensions to containers
type ContainerRegistry struct {
	containers map[string]Container
}

// NewContainerRegistry creates a registry with the zip, mbox and pdf containers
func NewContainerRegistry() *ContainerRegistry {
	reg := &ContainerRegistry{containers: make(map[string]Container)}
	reg.Register(zipContainer{})
	reg.Register(mboxContainer{})
	reg.Register(pdfContainer{})
	return reg
}

// Register adds c under each of its extensions
func (r *ContainerRegistry) Register(c Container) {
	for _, ext := range c.Extensions() {
		r.containers[strings.ToLower(ext)] = c
	}
}

// Lookup returns the container for a file path, by extension
func (r *ContainerRegistry) Lookup(p string) (Container, bool) {
	c, ok := r.containers[strings.ToLower(filepath.Ext(p))]
	return c, ok
}

// Extensions lists every registered extension in sorted order
func (r *ContainerRegistry) Extensions() []string {
	exts := make([]string, 0, len(r.containers))
	for ext := range r.containers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// matchText runs the matcher over decoded text line by line
func matchText(ctx context.Context, r io.Reader, m Matcher) ([]MatchSpan, error) {
	lr := newLineReader(r)
	var spans []MatchSpan
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, lineNo, ok, err := lr.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return spans, nil
		}
		spans = append(spans, m.Match(line, lineNo)...)
	}
}

// zipContainer searches the entries of a ZIP archive one level deep.
// Entries are decoded as UTF-8 without looking for a byte-order mark.
type zipContainer struct{}

func (zipContainer) Extensions() []string { return []string{".zip"} }

func (zipContainer) Scan(ctx context.Context, p string, globs *GlobSet, m Matcher, emit func(SearchResult) error) error {
	zr, err := zip.OpenReader(p)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %s: %v", ErrMalformedContainer, p, err)
		}
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Base(f.Name)
		// no descent into nested archives
		if strings.EqualFold(path.Ext(name), ".zip") || !globs.Match(name) {
			continue
		}

		spans, err := scanZipEntry(ctx, f, m)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// unreadable entry, keep going with the rest of the archive
			continue
		}
		if len(spans) == 0 {
			continue
		}
		if err := emit(SearchResult{Path: p, Entry: f.Name, Encoding: EncodingUTF8, Matches: spans}); err != nil {
			return err
		}
	}
	return nil
}

func scanZipEntry(ctx context.Context, f *zip.File, m Matcher) ([]MatchSpan, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec, err := EncodingUTF8.NewDecoder(rc)
	if err != nil {
		return nil, err
	}
	return matchText(ctx, dec, m)
}

// mboxContainer searches the text body of every message in an mbox file,
// plus text attachments whose file name matches the masks.
type mboxContainer struct{}

func (mboxContainer) Extensions() []string { return []string{".mbox"} }

func (mboxContainer) Scan(ctx context.Context, p string, globs *GlobSet, m Matcher, emit func(SearchResult) error) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := mbox.NewReader(f)
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := reader.NextMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if n == 1 {
				return fmt.Errorf("%w: %s: %v", ErrMalformedContainer, p, err)
			}
			// a damaged message ends the readable part of the mailbox
			return nil
		}

		env, err := enmime.ReadEnvelope(msg)
		if err != nil {
			continue
		}
		entry := fmt.Sprintf("message-%d", n)

		body := env.Text
		if body == "" && env.HTML != "" {
			body = stripHTMLTags(env.HTML)
		}
		if err := emitText(ctx, p, entry, body, m, emit); err != nil {
			return err
		}

		for _, part := range env.Attachments {
			if part.FileName == "" || !strings.HasPrefix(part.ContentType, "text/") || !globs.Match(part.FileName) {
				continue
			}
			if err := emitText(ctx, p, entry+"/"+part.FileName, string(part.Content), m, emit); err != nil {
				return err
			}
		}
	}
}

// emitText matches text and emits one result when anything matched
func emitText(ctx context.Context, p, entry, text string, m Matcher, emit func(SearchResult) error) error {
	if text == "" {
		return nil
	}
	spans, err := matchText(ctx, strings.NewReader(text), m)
	if err != nil {
		return err
	}
	if len(spans) == 0 {
		return nil
	}
	return emit(SearchResult{Path: p, Entry: entry, Encoding: EncodingUTF8, Matches: spans})
}

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	htmlEntityRegex = regexp.MustCompile(`&[a-zA-Z0-9#]*;`)
)

// stripHTMLTags removes HTML tags and decodes the common entities
func stripHTMLTags(html string) string {
	text := htmlTagRegex.ReplaceAllString(html, " ")
	return htmlEntityRegex.ReplaceAllStringFunc(text, func(entity string) string {
		switch entity {
		case "&amp;":
			return "&"
		case "&lt;":
			return "<"
		case "&gt;":
			return ">"
		case "&quot;":
			return "\""
		case "&apos;", "&#39;":
			return "'"
		case "&nbsp;":
			return " "
		default:
			return " "
		}
	})
}

// pdfContainer searches the plain text of each PDF page
type pdfContainer struct{}

func (pdfContainer) Extensions() []string { return []string{".pdf"} }

func (pdfContainer) Scan(ctx context.Context, p string, _ *GlobSet, m Matcher, emit func(SearchResult) error) (err error) {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}

	// The PDF library may panic on malformed input
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrMalformedContainer, p, r)
		}
	}()

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedContainer, p, err)
	}

	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		text, ok := pageText(reader, i)
		if !ok {
			continue
		}
		if err := emitText(ctx, p, fmt.Sprintf("page-%d", i), text, m, emit); err != nil {
			return err
		}
	}
	return nil
}

// pageText extracts one page, treating a panic as an unreadable page
func pageText(reader *pdf.Reader, i int) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	page := reader.Page(i)
	if page.V.IsNull() {
		return "", false
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return text, true
}

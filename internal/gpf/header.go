package gpf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"gpfimport/internal/importerr"
)

// Header is the first two lines of a GPF: an opaque title line and the total
// point count. Whitespace and line endings around the count are kept so a
// rewrite only touches the number.
type Header struct {
	Title string // line 1, including its line ending
	Count int

	lead  string
	trail string
	eol   string
}

// ParseHeader splits b into the header and the remaining bytes.
func ParseHeader(b []byte) (Header, []byte, error) {
	title, rest, ok := cutLine(b)
	if !ok {
		return Header{}, nil, fmt.Errorf("missing point count line")
	}
	line, rest, _ := cutLine(rest)

	h := Header{Title: string(title)}
	body := string(line)
	switch {
	case strings.HasSuffix(body, "\r\n"):
		h.eol = "\r\n"
	case strings.HasSuffix(body, "\n"):
		h.eol = "\n"
	}
	body = strings.TrimSuffix(body, h.eol)

	num := strings.TrimSpace(body)
	h.lead = body[:strings.IndexFunc(body+"x", func(r rune) bool { return !unicode.IsSpace(r) })]
	h.trail = body[len(h.lead)+len(num):]

	n, err := strconv.Atoi(num)
	if err != nil {
		return Header{}, nil, fmt.Errorf("point count %q: %w", num, err)
	}
	if n < 0 {
		return Header{}, nil, fmt.Errorf("point count %d is negative", n)
	}
	h.Count = n
	return h, rest, nil
}

// LineEnding is the line terminator used by the header, "\n" when neither
// header line carries one.
func (h Header) LineEnding() string {
	switch {
	case h.eol != "":
		return h.eol
	case strings.HasSuffix(h.Title, "\r\n"):
		return "\r\n"
	default:
		return "\n"
	}
}

// Bytes renders the header with its count field set to count.
func (h Header) Bytes(count int) []byte {
	var b bytes.Buffer
	b.WriteString(h.Title)
	b.WriteString(h.lead)
	b.WriteString(strconv.Itoa(count))
	b.WriteString(h.trail)
	b.WriteString(h.eol)
	return b.Bytes()
}

// cutLine returns the first line of b including its newline. ok is false
// when b is empty.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	if len(b) == 0 {
		return nil, nil, false
	}
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i+1], b[i+1:], true
	}
	return b, nil, true
}

// ReadCount reads only the header of the GPF at path and returns its point
// count.
func ReadCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var head []byte
	for i := 0; i < 2; i++ {
		line, err := br.ReadBytes('\n')
		head = append(head, line...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	h, _, err := ParseHeader(head)
	if err != nil {
		return 0, importerr.Corrupt("read point count", path, "", err)
	}
	return h.Count, nil
}

// PatchCount rewrites the count line of the GPF at path from want to count.
// The file must still record want; anything else means it changed under us.
func PatchCount(path string, want, count int) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	h, rest, err := ParseHeader(b)
	if err != nil {
		return importerr.Corrupt("patch point count", path, "", err)
	}
	if h.Count != want {
		return importerr.Corrupt("patch point count", path, strconv.Itoa(h.Count),
			fmt.Errorf("expected count %d", want))
	}

	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	out := append(h.Bytes(count), rest...)
	return os.WriteFile(path, out, fi.Mode().Perm())
}

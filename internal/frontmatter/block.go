package frontmatter

import (
	"bytes"
	"cmp"
	"errors"
)

const delimiter = "---"

// ErrUnterminated reports a source whose first line opens a header that no
// later delimiter line closes.
var ErrUnterminated = errors.New("front matter opened but not closed")

// Block is a source file cut at its header delimiter lines.
type Block struct {
	Header  []byte // YAML between the delimiter lines
	Body    []byte
	Present bool   // the first line was a delimiter
	Newline string // "\n" or "\r\n", from the first line break
}

// Split cuts src into header and body. A source that does not open with a
// delimiter line is all body. The closing delimiter may be the last line of
// the file without a line break.
func Split(src []byte) (Block, error) {
	b := Block{Body: src, Newline: newlineOf(src)}
	first, rest, ok := cutLine(src)
	if !ok || string(first) != delimiter {
		return b, nil
	}

	for off := 0; ; {
		line, next, terminated := cutLine(rest[off:])
		if string(line) == delimiter {
			b.Header = rest[:off]
			b.Body = next
			b.Present = true
			return b, nil
		}
		if !terminated {
			return Block{}, ErrUnterminated
		}
		off = len(rest) - len(next)
	}
}

// Bytes reassembles the block. Without a header the body is returned as is.
func (b Block) Bytes() []byte {
	if !b.Present {
		return b.Body
	}
	nl := cmp.Or(b.Newline, "\n")
	out := make([]byte, 0, 2*(len(delimiter)+len(nl))+len(b.Header)+len(nl)+len(b.Body))
	out = append(out, delimiter+nl...)
	out = append(out, b.Header...)
	if len(b.Header) > 0 && !bytes.HasSuffix(b.Header, []byte("\n")) {
		out = append(out, nl...)
	}
	out = append(out, delimiter+nl...)
	return append(out, b.Body...)
}

// cutLine returns the first line of src without its line break, and whether
// a line break ended it.
func cutLine(src []byte) (line, rest []byte, terminated bool) {
	i := bytes.IndexByte(src, '\n')
	if i < 0 {
		return src, nil, false
	}
	return bytes.TrimSuffix(src[:i], []byte("\r")), src[i+1:], true
}

func newlineOf(src []byte) string {
	i := bytes.IndexByte(src, '\n')
	if i > 0 && src[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

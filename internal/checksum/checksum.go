package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"strings"
	"unicode"
)

// Reader passes bytes through unchanged while hashing them.
// Not safe for concurrent use.
type Reader struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, h: sha256.New()}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.h.Write(p[:n])
		r.n += int64(n)
	}
	return n, err
}

// Sum returns the hex SHA-256 of the bytes read so far.
func (r *Reader) Sum() string {
	return hex.EncodeToString(r.h.Sum(nil))
}

// Bytes returns the number of bytes read so far.
func (r *Reader) Bytes() int64 {
	return r.n
}

// Sum returns the hex SHA-256 of content.
func Sum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Fingerprint hashes a column definition fragment after normalization.
func Fingerprint(ddl string) string {
	return Sum([]byte(Normalize(ddl)))
}

// Normalize lower-cases ddl outside single-quoted literals, drops -- line
// comments and collapses whitespace runs to one space. Literals are kept
// verbatim.
func Normalize(ddl string) string {
	var b strings.Builder
	b.Grow(len(ddl))

	inQuote, inComment, pendingSpace := false, false, false
	runes := []rune(ddl)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
				pendingSpace = true
			}
			continue
		case !inQuote && r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			inComment = true
			i++
			continue
		case !inQuote && unicode.IsSpace(r):
			pendingSpace = true
			continue
		case r == '\'':
			inQuote = !inQuote
		}

		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		if inQuote {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

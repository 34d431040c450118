package core

// streaming.go prepares raw export bytes for line parsing without loading
// the whole file into memory.
//
//   - DecodeReader: strips a UTF-8 BOM and decodes Windows-1252 exports
//     (older measurement PCs write Scandinavian letters in the ANSI code page)
//   - CountingReader: tracks raw bytes read for stats and the size limit
//
// Use WrapForStreaming to apply both in the correct order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// SniffSize is how many leading bytes are inspected to choose the charset.
var SniffSize = 64 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeReader returns a reader yielding UTF-8 text.
// The first SniffSize bytes decide the charset: valid UTF-8 is passed through
// (minus any BOM), anything else is decoded as Windows-1252.
func DecodeReader(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(r, SniffSize)
	head, _ := br.Peek(SniffSize)

	if bytes.HasPrefix(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		return br
	}

	if validUTF8Prefix(head) {
		return br
	}

	return transform.NewReader(br, charmap.Windows1252.NewDecoder())
}

// validUTF8Prefix is utf8.Valid that tolerates a multi-byte rune cut off
// at the end of the sniffed window.
func validUTF8Prefix(b []byte) bool {
	if utf8.Valid(b) {
		return true
	}
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.Valid(b[:len(b)-i]) && !utf8.FullRune(b[len(b)-i:]) {
			return true
		}
	}
	return false
}

// CountingReader tracks how many raw bytes were read. The pipeline reports
// the count in ProcessStats.BytesRead, which the service checks against the
// size limit.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// WrapForStreaming counts raw bytes and then decodes them.
//
// Counting sits next to the source so the size limit applies to file bytes,
// not decoded bytes.
func WrapForStreaming(r io.Reader) (io.Reader, *CountingReader) {
	counter := &CountingReader{reader: r}
	return DecodeReader(counter), counter
}

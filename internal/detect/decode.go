package detect

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns src as valid UTF-8 with any leading byte order mark removed.
// Invalid byte sequences are replaced with U+FFFD; replaced reports whether
// that happened. Decode never fails.
func Decode(src []byte) (out []byte, replaced bool) {
	if utf8.Valid(src) {
		return bytes.TrimPrefix(src, utf8BOM), false
	}
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(src)
	if err != nil {
		return []byte(strings.ToValidUTF8(string(bytes.TrimPrefix(src, utf8BOM)), "\uFFFD")), true
	}
	return out, true
}

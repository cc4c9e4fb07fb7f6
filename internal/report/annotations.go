package report

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/jward/baseline-warden/internal/policy"
)

// DefaultAnnotationLimit caps annotations when the config sets none.
const DefaultAnnotationLimit = 50

// WriteAnnotations writes a GitHub Actions workflow command for each
// warning or error finding, up to limit lines. A limit of zero or less
// writes all of them. prefix is joined to each finding's path, so that
// annotations point at repository paths when the scan root is a
// subdirectory. It returns the number of lines written.
func WriteAnnotations(w io.Writer, findings []policy.Finding, limit int, prefix string) (int, error) {
	var n int
	for _, f := range findings {
		if limit > 0 && n >= limit {
			break
		}
		var command string
		switch f.Severity {
		case policy.SeverityError:
			command = "::error"
		case policy.SeverityWarning:
			command = "::warning"
		default:
			continue
		}

		file := f.Token.Path
		if prefix != "" && prefix != "." {
			file = path.Join(filepath.ToSlash(prefix), file)
		}
		message := f.Message
		if f.Feature != nil {
			message = f.Feature.DisplayTitle() + ": " + message
		}

		_, err := fmt.Fprintf(w, "%s file=%s,line=%d::%s\n",
			command, escapeProperty(file), f.Token.Line, escapeData(message))
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

var (
	dataEscaper     = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

func escapeData(s string) string     { return dataEscaper.Replace(s) }
func escapeProperty(s string) string { return propertyEscaper.Replace(s) }

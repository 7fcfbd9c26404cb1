package logging

import (
	"io"
	"regexp"

	"github.com/perpetuallyhorni/tikresolve/pkg/pattern"
)

var (
	// postIDRegex matches long numeric strings typical of TikTok post IDs.
	postIDRegex = regexp.MustCompile(`\b\d{18,}\b`)
	// cookieRegex matches serialized session values in header dumps and JSON output.
	cookieRegex = regexp.MustCompile(`(?i)("?cookie"?\s*[:=]\s*"?)[^"\n]+`)
)

// RedactingWriter is an io.Writer that redacts sensitive information before
// writing to an underlying writer.
type RedactingWriter struct {
	underlying   io.Writer
	replacements []replacement
}

type replacement struct {
	re   *regexp.Regexp
	repl string
}

// NewRedactingWriter creates a new writer that masks post IDs, session cookies
// and the handles and short links named by targets.
func NewRedactingWriter(w io.Writer, targets []string) io.Writer {
	replacements := []replacement{
		{cookieRegex, "${1}[COOKIE]"},
		{postIDRegex, "[POST_ID]"},
	}

	for _, target := range targets {
		m, err := pattern.Extract(target)
		if err != nil {
			continue
		}
		if m.User != "" {
			replacements = append(replacements, replacement{regexp.MustCompile(regexp.QuoteMeta(m.User)), "[USERNAME]"})
		}
		if m.ShortLink != "" {
			replacements = append(replacements, replacement{regexp.MustCompile(regexp.QuoteMeta(m.ShortLink)), "[SHORT_LINK]"})
		}
	}

	return &RedactingWriter{
		underlying:   w,
		replacements: replacements,
	}
}

// Write redacts the input byte slice and writes it to the underlying writer.
func (rw *RedactingWriter) Write(p []byte) (n int, err error) {
	message := string(p)
	for _, r := range rw.replacements {
		message = r.re.ReplaceAllString(message, r.repl)
	}

	if _, err = rw.underlying.Write([]byte(message)); err != nil {
		return 0, err
	}

	// Report the original length; callers only care that p was consumed.
	return len(p), nil
}

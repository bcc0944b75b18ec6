package gnupg

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// statusPrefix marks machine-readable lines on the status channel.
const statusPrefix = "[GNUPG:] "

// A statusLine is one parsed line of the status protocol: a keyword and its
// ordered positional fields.
type statusLine struct {
	keyword string
	fields  []string
}

// field returns positional field i, or "" if the line has fewer fields.
// Handlers use it so that a field count mismatch degrades to a partial
// update instead of a panic.
func (l statusLine) field(i int) string {
	if i < len(l.fields) {
		return l.fields[i]
	}
	return ""
}

// rest returns fields i onward joined with spaces. Useful for free-text
// trailers like user ids and failure reasons.
func (l statusLine) rest(i int) string {
	if i >= len(l.fields) {
		return ""
	}
	return strings.Join(l.fields[i:], " ")
}

// errTooFewFields reports a known keyword that arrived with fewer fields than
// its fixed layout requires. The line is skipped, not fatal.
func (l statusLine) errTooFewFields(want int) error {
	return fmt.Errorf("%s: %d fields, want at least %d", l.keyword, len(l.fields), want)
}

// parseStatusLine splits a raw status-channel line into its keyword and
// fields. Lines without the status prefix (gpg occasionally interleaves
// progress chatter) are not status lines.
func parseStatusLine(raw string) (statusLine, bool) {
	rest, found := strings.CutPrefix(raw, statusPrefix)
	if !found {
		return statusLine{}, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return statusLine{}, false
	}
	return statusLine{keyword: fields[0], fields: fields[1:]}, true
}

// dispatchStatusLine feeds one raw status line to result. Unrecognized
// keywords are ignored for forward compatibility with newer protocol
// versions, and a malformed line is logged and skipped rather than aborting
// the invocation.
func (g *GPG) dispatchStatusLine(logger zerolog.Logger, result Result, raw string) {
	line, ok := parseStatusLine(raw)
	if !ok {
		logger.Debug().Str("line", raw).Msg("ignoring non-status line")
		return
	}
	if err := result.consumeStatusLine(line); err != nil {
		logger.Warn().Str("line", raw).Err(err).Msg("skipping malformed status line")
		return
	}
	logger.Trace().Str("keyword", line.keyword).Msg("status")
}

package model

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Identifiers follow {prefix}_{unix-ms}_{6 alphanumerics}, e.g.
// "rubric_item_1698768000000_abc123". The prefix may itself contain
// underscores; the last two segments are fixed-width.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+_\d{13}_[a-zA-Z0-9]{6}$`)

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewID generates a URL-safe identifier for the given entity prefix.
func NewID(prefix string) string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = idAlphabet[int(buf[i])%len(idAlphabet)]
	}
	return fmt.Sprintf("%s_%013d_%s", prefix, time.Now().UnixMilli(), buf)
}

// ValidID reports whether value matches the identifier grammar.
func ValidID(value string) bool { return idPattern.MatchString(value) }

func NewDocID() string        { return NewID("doc") }
func NewBlockID() string      { return NewID("block") }
func NewVisualID() string     { return NewID("visual") }
func NewRubricID() string     { return NewID("rubric") }
func NewRubricItemID() string { return NewID("rubric_item") }
func NewQuestionID() string   { return NewID("question") }
func NewSubmissionID() string { return NewID("submission") }
func NewEvalID() string       { return NewID("eval") }

// IDPrefix returns the entity prefix of a valid identifier, or "" when the
// identifier does not match the grammar.
func IDPrefix(value string) string {
	if !ValidID(value) {
		return ""
	}
	parts := strings.Split(value, "_")
	// Last two segments are timestamp and random suffix.
	return strings.Join(parts[:len(parts)-2], "_")
}

// IDTimestamp extracts the creation time encoded in a valid identifier.
func IDTimestamp(value string) (time.Time, bool) {
	if !ValidID(value) {
		return time.Time{}, false
	}
	parts := strings.Split(value, "_")
	ms, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// IsIDType reports whether value is a valid identifier with the given prefix.
func IsIDType(value, prefix string) bool { return IDPrefix(value) == prefix }

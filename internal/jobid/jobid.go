// Package jobid generates job identifiers of the form
//
//	<prefix>_<YYYYMMDD>_<HHMMSS>_<mmm>_<12 hex digits>
//
// The timestamp is UTC so identifiers of one prefix sort by creation time,
// the random suffix comes from a version 4 UUID.
package jobid

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultPrefix = "job"

type Generator struct {
	// Now returns the current time, time.Now when nil.
	Now func() time.Time
	// Rand supplies the random suffix, uuid.New when nil.
	Rand func() uuid.UUID
}

var std Generator

// New returns an identifier generated by the default generator.
func New(prefix string) string {
	return std.New(prefix)
}

func (g Generator) New(prefix string) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	random := uuid.New
	if g.Rand != nil {
		random = g.Rand
	}

	t := now().UTC()
	u := random()

	var sb strings.Builder
	sb.Grow(len(prefix) + 36)
	sb.WriteString(Sanitize(prefix))
	sb.WriteByte('_')
	sb.WriteString(t.Format("20060102_150405"))
	fmt.Fprintf(&sb, "_%03d_", t.Nanosecond()/int(time.Millisecond))
	sb.WriteString(hex.EncodeToString(u[:6]))
	return sb.String()
}

// Sanitize restricts prefix to ASCII letters, digits and '-'. Other runes are
// dropped, an empty result becomes DefaultPrefix.
func Sanitize(prefix string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return -1
		}
	}, prefix)
	if clean == "" {
		return DefaultPrefix
	}
	return clean
}

// Valid reports whether id is usable as a single file name component of the
// inbox and results directories.
func Valid(id string) bool {
	if id == "" || id == "." || id == ".." || len(id) > 200 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return !strings.HasPrefix(id, ".")
}

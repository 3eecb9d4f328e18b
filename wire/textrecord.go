// Package wire implements the two wire formats carried by game datagrams:
// pipe-delimited text records and the binary "tank" packet family, along
// with the variant argument sub-encoding used inside CALL_FUNCTION packets.
package wire

import (
	"strconv"
	"strings"
)

// DefaultDelimiter is the token separator used by TextRecord lines.
const DefaultDelimiter = '|'

// Line is a single (key, values) pair parsed from one `key|v1|v2|...` line.
type Line struct {
	Key    string
	Values []string
}

// TextRecord is an ordered sequence of Lines. Keys are not unique; Set
// replaces the first match.
type TextRecord struct {
	Lines []Line
}

// tokenize splits raw on delim and drops a single leading empty token,
// matching the wire quirk where lines are sometimes prefixed with a stray
// delimiter. Other empty tokens are preserved.
func tokenize(raw string, delim byte) []string {
	toks := strings.Split(raw, string(delim))
	if len(toks) > 0 && toks[0] == "" {
		toks = toks[1:]
	}
	return toks
}

// ParseTextRecord parses buf into a TextRecord, splitting on '\n'. Empty
// lines and lines that tokenize to fewer than two tokens are discarded.
func ParseTextRecord(buf []byte, delim byte) TextRecord {
	var rec TextRecord
	for _, raw := range strings.Split(string(buf), "\n") {
		if raw == "" {
			continue
		}
		toks := tokenize(raw, delim)
		if len(toks) < 2 {
			continue
		}
		rec.Lines = append(rec.Lines, Line{Key: toks[0], Values: toks[1:]})
	}
	return rec
}

// RawEmptyKeyValue scans buf's raw (un-tokenize-dropped) lines for one whose
// split produces exactly two tokens with an empty first token — i.e. a line
// that is just "|<value>". This recovers text that ParseTextRecord would
// otherwise discard outright (a single value has fewer than two tokens once
// the leading empty is dropped), used as a fallback for malformed client
// input that never carries an explicit "text|" key.
func RawEmptyKeyValue(buf []byte, delim byte) (string, bool) {
	for _, raw := range strings.Split(string(buf), "\n") {
		if raw == "" {
			continue
		}
		toks := strings.Split(raw, string(delim))
		if len(toks) == 2 && toks[0] == "" {
			return toks[1], true
		}
	}
	return "", false
}

// Emit joins values with delim and lines with '\n'; no trailing newline.
func (r TextRecord) Emit(delim byte) []byte {
	var b strings.Builder
	for i, l := range r.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Key)
		for _, v := range l.Values {
			b.WriteByte(delim)
			b.WriteString(v)
		}
	}
	return []byte(b.String())
}

// Get returns the indexed value of the first line matching key, or "".
func (r TextRecord) Get(key string, index int) string {
	for _, l := range r.Lines {
		if l.Key == key {
			if index < 0 || index >= len(l.Values) {
				return ""
			}
			return l.Values[index]
		}
	}
	return ""
}

// GetInt parses Get(key, index) as base-10, returning fallback on failure.
func (r TextRecord) GetInt(key string, index int, fallback int) int {
	v := r.Get(key, index)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Contains reports whether any line has the given key.
func (r TextRecord) Contains(key string) bool {
	for _, l := range r.Lines {
		if l.Key == key {
			return true
		}
	}
	return false
}

// Set replaces the values of the first line matching key, or appends a new
// line if none matches.
func (r *TextRecord) Set(key string, values ...string) {
	for i := range r.Lines {
		if r.Lines[i].Key == key {
			r.Lines[i].Values = values
			return
		}
	}
	r.Lines = append(r.Lines, Line{Key: key, Values: values})
}

// Remove deletes the first line matching key, if any.
func (r *TextRecord) Remove(key string) {
	for i := range r.Lines {
		if r.Lines[i].Key == key {
			r.Lines = append(r.Lines[:i], r.Lines[i+1:]...)
			return
		}
	}
}

// Empty reports whether the record carries no lines.
func (r TextRecord) Empty() bool {
	return len(r.Lines) == 0
}

package bootstrap

import "strings"

// bodyLine is one line of a bootstrap response body. Lines without a '|'
// are sentinels (e.g. "RTENDMARKERBS1001") and are preserved verbatim.
type bodyLine struct {
	Raw    string
	Key    string
	Values []string
}

func (l bodyLine) isSentinel() bool { return l.Key == "" }

// parseBody normalizes line endings and the stray-\r key fixups, then
// splits into keyed lines and sentinel lines, each preserving relative
// order.
func parseBody(s string) (keyed []bodyLine, sentinels []bodyLine) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, fixup := range []string{"type|", "beta_type|", "meta|"} {
		s = strings.ReplaceAll(s, "\r"+fixup, "\n"+fixup)
	}

	for _, raw := range strings.Split(s, "\n") {
		if raw == "" {
			continue
		}
		idx := strings.IndexByte(raw, '|')
		if idx < 0 {
			sentinels = append(sentinels, bodyLine{Raw: raw})
			continue
		}
		keyed = append(keyed, bodyLine{
			Raw:    raw,
			Key:    raw[:idx],
			Values: strings.Split(raw[idx+1:], "|"),
		})
	}
	return keyed, sentinels
}

func getValue(keyed []bodyLine, key string) (string, bool) {
	for _, l := range keyed {
		if l.Key == key && len(l.Values) > 0 {
			return l.Values[0], true
		}
	}
	return "", false
}

func hasKey(keyed []bodyLine, key string) bool {
	for _, l := range keyed {
		if l.Key == key {
			return true
		}
	}
	return false
}

func setValue(keyed []bodyLine, key string, values ...string) []bodyLine {
	for i := range keyed {
		if keyed[i].Key == key {
			keyed[i].Values = values
			return keyed
		}
	}
	return append(keyed, bodyLine{Key: key, Values: values})
}

func removeKey(keyed []bodyLine, key string) []bodyLine {
	out := keyed[:0]
	for _, l := range keyed {
		if l.Key != key {
			out = append(out, l)
		}
	}
	return out
}

func emitBody(keyed, sentinels []bodyLine) string {
	var b strings.Builder
	for _, l := range keyed {
		b.WriteString(l.Key)
		for _, v := range l.Values {
			b.WriteByte('|')
			b.WriteString(v)
		}
		b.WriteByte('\n')
	}
	for _, l := range sentinels {
		b.WriteString(l.Raw)
		b.WriteByte('\n')
	}
	return b.String()
}

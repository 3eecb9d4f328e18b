// Package command implements the in-band text command dispatcher: prefix
// matching, token normalization, and handler execution with panic/error
// containment so a single bad handler never breaks the relay loop.
package command

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// DefaultPrefix is used when a configured prefix is invalid.
const DefaultPrefix = '/'

// Handler runs a dispatched command. Returning an error or panicking is
// safe — Execute logs either and never propagates them.
type Handler func(args []string) error

// Registry normalizes input text, matches a prefix, and dispatches to a
// registered Handler by name.
type Registry struct {
	prefix   byte
	handlers map[string]Handler
	log      *zap.SugaredLogger
}

// New builds a Registry. A zero prefix byte reverts to DefaultPrefix.
func New(prefix byte, log *zap.SugaredLogger) *Registry {
	if prefix == 0 {
		prefix = DefaultPrefix
	}
	return &Registry{prefix: prefix, handlers: make(map[string]Handler), log: log}
}

// Register adds or replaces the handler for name (case-insensitive).
func (r *Registry) Register(name string, h Handler) {
	r.handlers[strings.ToLower(name)] = h
}

// normalize strips control bytes, a leading BOM, and leading whitespace.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r <= 0x1F {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	out = strings.TrimPrefix(out, "\uFEFF")
	return strings.TrimLeftFunc(out, unicode.IsSpace)
}

// commandToken keeps the leading run of [a-z0-9_-] (case-insensitive),
// lowercased, discarding the rest of that token.
func commandToken(tok string) string {
	lower := strings.ToLower(tok)
	end := 0
	for end < len(lower) {
		c := lower[end]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			end++
			continue
		}
		break
	}
	return lower[:end]
}

// Parse reports whether text is a command line, and if so its name and
// arguments, after normalization and prefix stripping.
func (r *Registry) Parse(text string) (name string, args []string, ok bool) {
	norm := normalize(text)
	if len(norm) == 0 || norm[0] != r.prefix {
		return "", nil, false
	}
	fields := strings.Fields(norm[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	name = commandToken(fields[0])
	if name == "" {
		return "", nil, false
	}
	return name, fields[1:], true
}

// Execute dispatches text to its registered handler. It returns true iff a
// handler ran — whether or not the handler errored or panicked — so the
// caller knows to drop the original text from the wire.
func (r *Registry) Execute(text string) bool {
	name, args, ok := r.Parse(text)
	if !ok {
		return false
	}
	handler, ok := r.handlers[name]
	if !ok {
		return false
	}
	r.run(name, handler, args)
	return true
}

func (r *Registry) run(name string, h Handler, args []string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorw("command handler panicked", "command", name, "panic", rec)
		}
	}()
	if err := h(args); err != nil {
		r.log.Errorw("command handler failed", "command", name, "error", err)
	}
}

package command

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func newTestRegistry() *Registry {
	return New('/', zap.NewNop().Sugar())
}

func TestExecuteDispatchesAndStripsControlBytes(t *testing.T) {
	r := newTestRegistry()
	var gotArgs []string
	r.Register("warp", func(args []string) error {
		gotArgs = args
		return nil
	})
	if !r.Execute("\x00/warp FOO") {
		t.Fatalf("expected command to dispatch")
	}
	if len(gotArgs) != 1 || gotArgs[0] != "FOO" {
		t.Fatalf("unexpected args %+v", gotArgs)
	}
}

func TestExecuteReturnsFalseWithoutPrefix(t *testing.T) {
	r := newTestRegistry()
	r.Register("warp", func(args []string) error { return nil })
	if r.Execute("warp FOO") {
		t.Fatalf("expected no dispatch without prefix")
	}
}

func TestExecuteReturnsFalseForUnregisteredCommand(t *testing.T) {
	r := newTestRegistry()
	if r.Execute("/nope") {
		t.Fatalf("expected no dispatch for unregistered command")
	}
}

func TestExecuteTrueEvenOnHandlerError(t *testing.T) {
	r := newTestRegistry()
	r.Register("boom", func(args []string) error { return errors.New("fail") })
	if !r.Execute("/boom") {
		t.Fatalf("expected dispatch true even though handler errors")
	}
}

func TestExecuteTrueEvenOnHandlerPanic(t *testing.T) {
	r := newTestRegistry()
	r.Register("panics", func(args []string) error { panic("boom") })
	if !r.Execute("/panics") {
		t.Fatalf("expected dispatch true even though handler panics")
	}
}

func TestCommandTokenStopsAtInvalidChar(t *testing.T) {
	r := newTestRegistry()
	var ran bool
	r.Register("warp", func(args []string) error { ran = true; return nil })
	r.Execute("/warp!!! FOO")
	if !ran {
		t.Fatalf("warp!!! should match registered warp via its leading run")
	}
}

func TestParseBOMAndWhitespaceStripped(t *testing.T) {
	r := newTestRegistry()
	name, args, ok := r.Parse("\uFEFF   /Warp foo bar")
	if !ok || name != "warp" || len(args) != 2 {
		t.Fatalf("got name=%q args=%+v ok=%v", name, args, ok)
	}
}

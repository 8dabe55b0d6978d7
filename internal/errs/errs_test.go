package errs

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

type codedErr struct{ code string }

func (e codedErr) Error() string { return "coded " + e.code }
func (e codedErr) Code() string  { return e.code }

func TestWrapPreservesChain(t *testing.T) {
	root := errors.New("disk full")
	err := Wrapf(Wrap(root, "insert issue"), "create issue %s", "abc")

	if !errors.Is(err, root) {
		t.Fatalf("errors.Is() = false, want true")
	}
	if got := err.Error(); got != "create issue abc: insert issue: disk full" {
		t.Fatalf("Error() = %q", got)
	}
	if Wrap(nil, "x") != nil || Wrapf(nil, "x %d", 1) != nil {
		t.Fatalf("Wrap(nil) should stay nil")
	}
}

func TestCodeFindsCodedErrorInChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", fmt.Errorf("%w: missing photo", codedErr{code: "precondition_failed"}))
	if got := Code(err); got != "precondition_failed" {
		t.Fatalf("Code() = %q", got)
	}
	if got := Code(errors.New("plain")); got != "" {
		t.Fatalf("Code(plain) = %q", got)
	}
}

func TestWithStackCapturesOnce(t *testing.T) {
	first := WithStack(errors.New("boom"))
	second := WithStack(Wrap(first, "again"))

	var se *StackError
	if !errors.As(second, &se) {
		t.Fatalf("expected StackError in chain")
	}
	if se != first {
		t.Fatalf("WithStack() captured a second stack")
	}
	if len(se.Stack()) == 0 {
		t.Fatalf("Stack() is empty")
	}
}

func TestLoggableIncludesCodeAndJoinedChain(t *testing.T) {
	err := errors.Join(codedErr{code: "unavailable"}, errors.New("context deadline exceeded"))
	value := Loggable(err).LogValue()

	if value.Kind() != slog.KindGroup {
		t.Fatalf("LogValue() kind = %v", value.Kind())
	}
	attrs := map[string]slog.Value{}
	for _, attr := range value.Group() {
		attrs[attr.Key] = attr.Value
	}
	if attrs["code"].String() != "unavailable" {
		t.Fatalf("code attr = %q", attrs["code"].String())
	}
	chain, ok := attrs["chain"].Any().([]string)
	if !ok || len(chain) != 3 {
		t.Fatalf("chain attr = %#v", attrs["chain"].Any())
	}
}

package cloeerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{Configuration("bad stackfile", nil), 1},
		{PluginLoad("binding", "not found", nil), 1},
		{Connection("sim", "refused", nil), 2},
		{StepStalled(5, []string{"sim1"}), 2},
		{ModelFailure("ctrl", "panic", nil), 2},
		{Aborted("sigint"), 3},
		{errors.New("plain error"), 2},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestPredicatesUnwrapWrapped(t *testing.T) {
	base := StepStalled(3, []string{"a"})
	wrapped := fmt.Errorf("step executor: %w", base)
	if !IsStepStalled(wrapped) {
		t.Error("IsStepStalled should see through fmt.Errorf wrapping")
	}
	if IsAborted(wrapped) {
		t.Error("IsAborted should not match a StepStalled error")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Connection("sim1", "connection refused", nil)
	want := "CONNECTION_ERROR: connection refused (model=sim1)"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

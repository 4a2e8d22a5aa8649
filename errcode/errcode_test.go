package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"code", QueueFull, QueueFull},
		{"wrapped E", &E{C: ActionFailure, Op: "led"}, ActionFailure},
		{"fmt wrapped code", fmt.Errorf("enqueue: %w", QueueFull), QueueFull},
		{"plain", errors.New("boom"), Error},
	}
	for _, c := range cases {
		if got := Of(c.err); got != c.want {
			t.Fatalf("%s: Of()=%q want %q", c.name, got, c.want)
		}
	}
}

func TestEIsAndMessage(t *testing.T) {
	cause := errors.New("refused")
	err := Wrap(ActionFailure, "gatt.write", cause)
	if !errors.Is(err, ActionFailure) {
		t.Fatal("errors.Is should match the code")
	}
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should match the cause")
	}
	if got, want := err.Error(), "gatt.write: action_failure: refused"; got != want {
		t.Fatalf("Error()=%q want %q", got, want)
	}
	if Wrap(ActionFailure, "x", nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
}

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestInvalidTransition(t *testing.T) {
	err := InvalidTransition("race already running")

	if err.Kind != ErrInvalidTransition {
		t.Errorf("expected Kind to be ErrInvalidTransition (%d), got %d", ErrInvalidTransition, err.Kind)
	}
	if err.Message != "race already running" {
		t.Errorf("expected Message to be 'race already running', got '%s'", err.Message)
	}
	if err.Err != nil {
		t.Errorf("expected Err to be nil, got %v", err.Err)
	}
}

func TestInvalidTransitionf(t *testing.T) {
	err := InvalidTransitionf("cannot start race during %s", "racing")

	if err.Kind != ErrInvalidTransition {
		t.Errorf("expected Kind to be ErrInvalidTransition (%d), got %d", ErrInvalidTransition, err.Kind)
	}
	if err.Message != "cannot start race during racing" {
		t.Errorf("unexpected message: %s", err.Message)
	}
}

func TestUnknownParticipantf(t *testing.T) {
	err := UnknownParticipantf("no bettor with id %s", "abc")

	if err.Kind != ErrUnknownParticipant {
		t.Errorf("expected Kind to be ErrUnknownParticipant (%d), got %d", ErrUnknownParticipant, err.Kind)
	}
	if err.Message != "no bettor with id abc" {
		t.Errorf("unexpected message: %s", err.Message)
	}
}

func TestMalformedWager(t *testing.T) {
	err := MalformedWager("duplicate pick")

	if err.Kind != ErrMalformedWager {
		t.Errorf("expected Kind to be ErrMalformedWager (%d), got %d", ErrMalformedWager, err.Kind)
	}
}

func TestValidationf(t *testing.T) {
	err := Validationf("invalid role %q", "spectator")

	if err.Kind != ErrValidation {
		t.Errorf("expected Kind to be ErrValidation (%d), got %d", ErrValidation, err.Kind)
	}
	if err.Message != `invalid role "spectator"` {
		t.Errorf("unexpected message: %s", err.Message)
	}
}

func TestInternal_WrapsUnderlyingError(t *testing.T) {
	underlying := fmt.Errorf("connection lost")
	err := Internal(underlying)

	if err.Kind != ErrInternal {
		t.Errorf("expected Kind to be ErrInternal (%d), got %d", ErrInternal, err.Kind)
	}
	if !errors.Is(err, underlying) {
		t.Error("expected errors.Is to find the underlying error")
	}
	if err.Error() != "internal error: connection lost" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestWrap(t *testing.T) {
	underlying := fmt.Errorf("boom")
	err := Wrap(underlying, ErrValidation, "bad input")

	if err.Kind != ErrValidation {
		t.Errorf("expected wrapped kind ErrValidation, got %d", err.Kind)
	}
	if errors.Unwrap(err) != underlying {
		t.Error("expected Unwrap to return the underlying error")
	}
	if err.Error() != "bad input: boom" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestIsKind(t *testing.T) {
	err := MalformedWager("nope")

	if !IsKind(err, ErrMalformedWager) {
		t.Error("IsKind should match the error's own kind")
	}
	if IsKind(err, ErrValidation) {
		t.Error("IsKind should not match a different kind")
	}
	if IsKind(fmt.Errorf("plain"), ErrMalformedWager) {
		t.Error("IsKind should not match non-application errors")
	}
	if IsKind(nil, ErrMalformedWager) {
		t.Error("IsKind should not match nil")
	}
}

package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
		kind     ErrorKind
	}{
		{Validationf("bad input"), ErrValidation, KindValidation},
		{NotFoundf("missing"), ErrNotFound, KindNotFound},
		{QueryFailed("select", errors.New("boom")), ErrQueryFailed, KindQueryFailed},
		{Misconfigured("no dsn"), ErrMisconfigured, KindMisconfigured},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.sentinel) {
			t.Errorf("errors.Is(%v, sentinel %v) = false", tc.err, tc.kind)
		}
		if KindOf(tc.err) != tc.kind {
			t.Errorf("KindOf(%v) = %q, want %q", tc.err, KindOf(tc.err), tc.kind)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("batch row 3: %w", Validationf("tax_id %q must be exactly 8 digits", "123"))
	if KindOf(err) != KindValidation {
		t.Fatalf("KindOf(wrapped) = %q, want validation", KindOf(err))
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("errors.Is lost the kind through wrapping")
	}
}

func TestQueryFailedUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := QueryFailed("select companies", cause)
	if !errors.Is(err, cause) {
		t.Fatal("QueryFailed did not keep the cause reachable")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("plain error should carry no kind")
	}
	if KindOf(nil) != "" {
		t.Fatal("nil error should carry no kind")
	}
}

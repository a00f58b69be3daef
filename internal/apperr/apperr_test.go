package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKind_ThroughWrapping(t *testing.T) {
	base := NewInvalidRangeError("2024-05-10", "2024-05-01")
	wrapped := fmt.Errorf("forecast request: %w", base)

	if !IsKind(wrapped, KindConfig) {
		t.Errorf("expected wrapped error to be KindConfig")
	}
	if IsKind(wrapped, KindData) {
		t.Errorf("did not expect wrapped error to be KindData")
	}
	if KindOf(wrapped) != KindConfig {
		t.Errorf("KindOf = %q, want %q", KindOf(wrapped), KindConfig)
	}
}

func TestKindOf_PlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}

func TestError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("parsing time \"3113\"")
	err := NewBadDateError("3113", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the cause")
	}
	want := `DATE_PARSE[BAD_DATE]: Invalid calendar date (value: "3113"): parsing time "3113"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

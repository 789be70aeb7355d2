package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromErrorPassesThroughAppError(t *testing.T) {
	original := Conflict("SEATS_NOT_AVAILABLE", "Some seats are not available")

	got := FromError(original)
	if got != original {
		t.Errorf("expected the same *AppError back, got %+v", got)
	}
}

func TestFromErrorUnwrapsNestedAppError(t *testing.T) {
	inner := NotFound("BOOKING_NOT_FOUND", "Booking not found")
	wrapped := fmt.Errorf("loading booking: %w", inner)

	got := FromError(wrapped)
	if got.Code != "BOOKING_NOT_FOUND" || got.Status != http.StatusNotFound {
		t.Errorf("expected nested AppError to surface, got %+v", got)
	}
}

func TestFromErrorMapsUnknownToInternal(t *testing.T) {
	got := FromError(errors.New("connection reset"))

	if got.Code != CodeInternal {
		t.Errorf("code = %s, want %s", got.Code, CodeInternal)
	}
	if got.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", got.Status)
	}
	if got.Message == "connection reset" {
		t.Error("internal error message must not leak to the client")
	}
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	base := Conflict("SEATS_NOT_AVAILABLE", "Some seats are not available")
	detailed := base.WithDetails([]string{"A1", "A2"})

	if base.Details != nil {
		t.Error("original error must stay detail-free")
	}
	if detailed.Details == nil {
		t.Error("copy should carry the details")
	}
	if detailed.Code != base.Code || detailed.Status != base.Status {
		t.Error("copy must keep code and status")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("hold: %w", Precondition("BOOKING_HOLD_EXPIRED", "Hold expired"))

	if !IsCode(err, "BOOKING_HOLD_EXPIRED") {
		t.Error("expected IsCode to match through wrapping")
	}
	if IsCode(err, "BOOKING_NOT_FOUND") {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(errors.New("plain"), "ANY") {
		t.Error("plain errors carry no code")
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("duplicate key value")
	err := Internal("failed to persist booking", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

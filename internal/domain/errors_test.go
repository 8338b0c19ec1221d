package domain_test

import (
	"errors"
	"testing"

	"github.com/neomorfeo/tenantctl/internal/domain"
)

func TestSlugConflictError_Error(t *testing.T) {
	err := &domain.SlugConflictError{Slug: "acme"}
	want := `slug "acme" is already in use`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTransitionError_Error(t *testing.T) {
	err := &domain.TransitionError{
		Event:   domain.EventScheduleDeletion,
		Current: domain.StatusCreating,
	}
	want := `event "schedule_deletion" is not valid from state "creating"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestResourceError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &domain.ResourceError{TenantID: "t-1", Step: "creating_database", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("ResourceError should unwrap to its cause")
	}
	want := "tenant t-1: step creating_database: disk full"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCleanupReport_AddError(t *testing.T) {
	var report domain.CleanupReport
	report.AddError("backup", errors.New("permission denied"))
	report.AddError("drop_database", errors.New("locked"))

	if len(report.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(report.Errors))
	}
	if report.Errors[0] != "backup: permission denied" {
		t.Errorf("Errors[0] = %q", report.Errors[0])
	}
}

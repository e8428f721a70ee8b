package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := Wrap(CodeDependency, cause, "save ledger")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to satisfy errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("expected dependency code, got %s", err.Code())
	}
	if err.Error() != "DEPENDENCY_ERROR: save ledger" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	typed := New(CodeConflict, "pending potion exists")
	wrapped := fmt.Errorf("create roll: %w", typed)

	found := As(wrapped)
	if found == nil {
		t.Fatal("expected typed error to be found")
	}
	if found.Code() != CodeConflict {
		t.Fatalf("expected conflict code, got %s", found.Code())
	}
	if !IsCode(wrapped, CodeConflict) {
		t.Fatal("expected IsCode to match through wrapping")
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal metadata, got status %d", meta.HTTPStatus)
	}
}

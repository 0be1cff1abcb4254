package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestRecover_WithPanic tests the Recover function when a panic occurs
func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()

	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}

	if panicErr.Operation != "TestOperation" {
		t.Errorf("Expected operation 'TestOperation', got '%s'", panicErr.Operation)
	}

	if panicErr.PanicValue != "test panic message" {
		t.Errorf("Expected panic value 'test panic message', got '%v'", panicErr.PanicValue)
	}

	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}

	expectedMsg := "panic in TestOperation: test panic message"
	if panicErr.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, panicErr.Error())
	}
}

// TestRecover_WithoutPanic tests the Recover function when no panic occurs
func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

// TestRecover_WithExistingError checks that an error set before the panic is kept in the chain
func TestRecover_WithExistingError(t *testing.T) {
	original := fmt.Errorf("original failure")
	testFunc := func() (err error) {
		defer Recover(&err, "Transform")
		err = original
		panic("mat: dimension mismatch")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, original) {
		t.Errorf("Expected wrapped original error, got %v", err)
	}
	if !strings.Contains(err.Error(), "mat: dimension mismatch") {
		t.Errorf("Expected panic value in message, got %q", err.Error())
	}
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name    string
		fn      func() error
		wantErr string
	}{
		{
			name:    "no error",
			fn:      func() error { return nil },
			wantErr: "",
		},
		{
			name:    "returned error",
			fn:      func() error { return fmt.Errorf("plain failure") },
			wantErr: "plain failure",
		},
		{
			name:    "panic",
			fn:      func() error { panic("index out of range") },
			wantErr: "panic in predict: index out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("predict", tt.fn)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("SafeExecute() unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("SafeExecute() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

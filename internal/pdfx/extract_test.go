package pdfx

import (
	"errors"
	"testing"
)

func TestExtractGarbageIsUnreadable(t *testing.T) {
	ex := New(500)
	_, err := ex.Extract([]byte("this is not a pdf at all"))
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	ex := New(500)
	_, err := ex.Extract(nil)
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable for empty input, got %v", err)
	}
}

func TestNewDefaultCeiling(t *testing.T) {
	if got := New(0).MaxPages(); got != 500 {
		t.Fatalf("expected default ceiling 500, got %d", got)
	}
	if got := New(25).MaxPages(); got != 25 {
		t.Fatalf("expected configured ceiling 25, got %d", got)
	}
}

package reader

import (
	"testing"

	"github.com/mcgov/purt/internal/testimg"
)

func TestReadBytesValid(t *testing.T) {
	data := []byte("0123456789abcdef")
	r := New(testimg.New(data))

	got, err := r.ReadBytes(4, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "456789" {
		t.Errorf("ReadBytes = %q, want 456789", got)
	}
}

func TestReadBytesOutOfRange(t *testing.T) {
	r := New(testimg.New(make([]byte, 10)))
	_, err := r.ReadBytes(5, 10)
	if err == nil {
		t.Fatal("expected an out-of-range error")
	}
	if _, ok := err.(*OutOfRangeError); !ok {
		t.Errorf("expected *OutOfRangeError, got %T", err)
	}
}

func TestReadBytesNegativeOffset(t *testing.T) {
	r := New(testimg.New(make([]byte, 10)))
	_, err := r.ReadBytes(-1, 4)
	if err == nil {
		t.Fatal("expected an error for a negative offset")
	}
}

func TestSize(t *testing.T) {
	r := New(testimg.New(make([]byte, 42)))
	size, err := r.Size()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 42 {
		t.Errorf("Size() = %d, want 42", size)
	}
}

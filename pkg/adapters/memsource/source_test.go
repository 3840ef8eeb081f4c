package memsource

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestReadAt(t *testing.T) {
	s := New([]byte("0123456789"))
	ctx := context.Background()

	got, err := s.ReadAt(ctx, 2, 3)
	if err != nil || string(got) != "234" {
		t.Errorf("ReadAt(2, 3) = %q, %v", got, err)
	}

	got, err = s.ReadAt(ctx, 8, 5)
	if !errors.Is(err, io.ErrUnexpectedEOF) || string(got) != "89" {
		t.Errorf("ReadAt(8, 5) = %q, %v", got, err)
	}

	if _, err := s.ReadAt(ctx, 10, 1); !errors.Is(err, io.EOF) {
		t.Errorf("ReadAt past end: expected io.EOF, got %v", err)
	}

	if _, err := s.ReadAt(ctx, -1, 1); err == nil {
		t.Error("expected error for negative offset")
	}
}

func TestReadAtCopies(t *testing.T) {
	data := []byte("abcdef")
	s := New(data)
	got, _ := s.ReadAt(context.Background(), 0, 3)
	got[0] = 'X'
	if !bytes.Equal(data, []byte("abcdef")) {
		t.Error("ReadAt returned a slice aliasing the source")
	}
}

func TestReadAtCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New([]byte("x")).ReadAt(ctx, 0, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIdentity(t *testing.T) {
	a := NewNamed("a", []byte("xyz"))
	b := NewNamed("b", []byte("xyz"))
	if a.Identity() == b.Identity() {
		t.Error("different names should give different identities")
	}
	if s := New(nil); s.Size() != 0 {
		t.Errorf("Size() = %d", s.Size())
	}
}

package collcomm

import (
	"bytes"
	"errors"
	"testing"
)

func TestVectorPackUnpack(t *testing.T) {
	dt, err := NewVector(3, 2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if dt.Size() != 6 || dt.Extent() != 12 {
		t.Fatalf("unexpected size %d or extent %d", dt.Size(), dt.Extent())
	}
	if _, err := dt.Pack(make([]byte, 12)); !errors.Is(err, ErrNotCommitted) {
		t.Fatalf("expected ErrNotCommitted but got %v", err)
	}
	dt.Commit()

	buf := []byte("abcdefghijkl")
	packed, err := dt.Pack(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(packed) != "abfgkl" {
		t.Errorf("unexpected packed data %q", packed)
	}

	out := bytes.Repeat([]byte{'.'}, 12)
	if err := dt.Unpack(packed, out); err != nil {
		t.Fatal(err)
	}
	if string(out) != "ab...fg...kl" {
		t.Errorf("unexpected unpacked data %q", out)
	}

	if _, err := dt.Pack(buf[:11]); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated but got %v", err)
	}
	if err := dt.Unpack(packed[:5], out); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated but got %v", err)
	}
}

func TestVectorLifecycle(t *testing.T) {
	if _, err := NewVector(2, 4, 3); err == nil {
		t.Error("expected error for stride below block length")
	}
	if _, err := NewVector(-1, 4, 4); err == nil {
		t.Error("expected error for negative count")
	}

	dt, err := NewVector(0, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if dt.Extent() != 0 {
		t.Errorf("empty vector has extent %d", dt.Extent())
	}
	dt.Commit()
	dt.Free()
	if _, err := dt.Pack(nil); !errors.Is(err, ErrNotCommitted) {
		t.Errorf("expected ErrNotCommitted after free but got %v", err)
	}
	if !panics(dt.Free) {
		t.Error("double free did not panic")
	}
	if !panics(dt.Commit) {
		t.Error("commit after free did not panic")
	}
}

package zeroize

import "testing"

func TestBytesClearsBuffer(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	Bytes(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("byte %d not cleared: got %d", i, v)
		}
	}
}

func TestBytesNilAndEmpty(t *testing.T) {
	Bytes(nil)
	Bytes([]byte{})
}

func TestManyClearsAllBuffers(t *testing.T) {
	a := []byte{9, 9, 9}
	b := []byte{7, 7}
	Many(a, b)
	for _, buf := range [][]byte{a, b} {
		for _, v := range buf {
			if v != 0 {
				t.Errorf("expected buffer cleared, got %v", buf)
			}
		}
	}
}

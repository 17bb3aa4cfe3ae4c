package math

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want uint32
	}{
		{5, 1, 10, 5},
		{0, 1, 10, 1},
		{11, 1, 10, 10},
	}
	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%d,%d,%d) = %d, want %d", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
	if got := Clamp(float32(151), 0, 150); got != 150 {
		t.Errorf("float clamp = %f", got)
	}
}

func TestMaxAndWrap(t *testing.T) {
	if Max[uint64](3, 7) != 7 {
		t.Errorf("Max wrong")
	}
	if got := Wrap(float32(370)); got != 10 {
		t.Errorf("Wrap(370) = %f", got)
	}
	if got := Wrap(float32(-90)); got != 270 {
		t.Errorf("Wrap(-90) = %f", got)
	}
}

package domain

import (
	"math"
	"testing"
)

func TestMapToPDF(t *testing.T) {
	// Page 792pt tall, rect at top-left (100, 50), 60pt high:
	// lower-left corner sits at y = 792 - 50 - 60 = 682
	x, y := MapToPDF(792, 100, 50, 60)
	if x != 100 {
		t.Errorf("x must pass through, got %v", x)
	}
	if y != 682 {
		t.Errorf("expected y=682, got %v", y)
	}
}

func TestMapRoundTrip(t *testing.T) {
	cases := []struct {
		h, x, y, hh Unit
	}{
		{792, 0, 0, 0},
		{792, 100.5, 50.25, 60},
		{841.89, 12.333, 700.77, 42.1},
		{1024, 512, 1024, 0},
	}
	for _, c := range cases {
		mx, my := MapToPDF(c.h, c.x, c.y, c.hh)
		rx, ry := MapFromPDF(c.h, mx, my, c.hh)
		if math.Abs(float64(rx-c.x)) > 1e-9 || math.Abs(float64(ry-c.y)) > 1e-9 {
			t.Errorf("round trip (%v,%v) -> (%v,%v) -> (%v,%v)", c.x, c.y, mx, my, rx, ry)
		}
	}
}

func TestAnnotation_MappedRect(t *testing.T) {
	a := &Annotation{X: 50, Y: 100, Width: 200, Height: 80}
	x, y, w, h := a.MappedRect(792)
	if x != 50 || y != 612 || w != 200 || h != 80 {
		t.Errorf("got (%v, %v, %v, %v)", x, y, w, h)
	}
}

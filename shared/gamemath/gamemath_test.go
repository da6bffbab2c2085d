package gamemath

import (
	"math"
	"testing"
)

func TestNormalizedEndpoints(t *testing.T) {
	cases := []struct {
		v    int16
		want float64
	}{
		{math.MinInt16, -1},
		{math.MaxInt16, 1},
		{0, 0},
	}
	for _, tc := range cases {
		if got := Normalized(tc.v); got != tc.want {
			t.Fatalf("Normalized(%d) = %v, want %v", tc.v, got, tc.want)
		}
	}
	if got := Normalized(math.MinInt16 / 2); got != -0.5 {
		t.Fatalf("Normalized(%d) = %v, want -0.5", math.MinInt16/2, got)
	}
}

func TestAxesFromButtons(t *testing.T) {
	cases := []struct {
		name                  string
		up, down, left, right bool
		wantX, wantY          int16
	}{
		{"idle", false, false, false, false, 0, 0},
		{"left", false, false, true, false, math.MinInt16, 0},
		{"right", false, false, false, true, math.MaxInt16, 0},
		{"left and right cancel", false, false, true, true, 0, 0},
		{"up", true, false, false, false, 0, math.MaxInt16},
		{"down", false, true, false, false, 0, math.MinInt16},
		{"up and down cancel", true, true, false, false, 0, 0},
		{"diagonal", true, false, false, true, math.MaxInt16, math.MaxInt16},
	}
	for _, tc := range cases {
		x, y := AxesFromButtons(tc.up, tc.down, tc.left, tc.right)
		if x != tc.wantX || y != tc.wantY {
			t.Fatalf("%s: got axes (%d, %d), want (%d, %d)", tc.name, x, y, tc.wantX, tc.wantY)
		}
	}
}

func TestStepMovesSymmetrically(t *testing.T) {
	x, y := Step(10, 20, math.MaxInt16, math.MinInt16, 4)
	if x != 14 || y != 16 {
		t.Fatalf("Step moved to (%v, %v), want (14, 16)", x, y)
	}
	x, y = Step(x, y, math.MinInt16, math.MaxInt16, 4)
	if x != 10 || y != 20 {
		t.Fatalf("opposite step should return to start, got (%v, %v)", x, y)
	}
	x, y = Step(x, y, 0, 0, 4)
	if x != 10 || y != 20 {
		t.Fatalf("idle step should not move, got (%v, %v)", x, y)
	}
}

package sequence

import "testing"

func TestGreaterThan(t *testing.T) {
	cases := []struct {
		name string
		a, b uint16
		want bool
	}{
		{"plain greater", 100, 90, true},
		{"plain lesser", 90, 100, false},
		{"equal", 7, 7, false},
		{"newer across wrap", 10, 60000, true},
		{"older across wrap", 60000, 10, false},
		{"zero succeeds max", 0, 65535, true},
		{"max precedes zero", 65535, 0, false},
		{"forward half edge", 32766, 0, true},
		{"past forward half", 32767, 0, false},
	}
	for _, tc := range cases {
		if got := GreaterThan(tc.a, tc.b); got != tc.want {
			t.Fatalf("%s: GreaterThan(%d, %d) = %v, want %v", tc.name, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestGreaterOrEqual(t *testing.T) {
	if !GreaterOrEqual(0, 65535) {
		t.Fatalf("expected 0 to be sequentially >= 65535")
	}
	if !GreaterOrEqual(42, 42) {
		t.Fatalf("expected counter to be sequentially >= itself")
	}
	if GreaterOrEqual(65535, 0) {
		t.Fatalf("expected 65535 not to be sequentially >= 0")
	}
}

// Every pair of distinct counters must order one way or the other, never both,
// no matter where the pair sits relative to the wrap point.
func TestOrderingIsTotal(t *testing.T) {
	deltas := []uint16{1, 2, 100, 32765, 32766, 32767, 32768, 40000, 65000, 65535}
	for a := 0; a <= 65535; a++ {
		ua := uint16(a)
		if GreaterThan(ua, ua) {
			t.Fatalf("GreaterThan(%d, %d) = true for equal counters", ua, ua)
		}
		for _, d := range deltas {
			ub := ua + d
			ab := GreaterThan(ua, ub)
			ba := GreaterThan(ub, ua)
			if ab == ba {
				t.Fatalf("GreaterThan(%d, %d) and GreaterThan(%d, %d) both %v", ua, ub, ub, ua, ab)
			}
			// Within the forward half the later counter wins.
			if d <= 32766 && !ba {
				t.Fatalf("expected %d to be sequentially newer than %d (ahead by %d)", ub, ua, d)
			}
			if GreaterOrEqual(ua, ub) != ab {
				t.Fatalf("GreaterOrEqual(%d, %d) disagrees with GreaterThan for distinct counters", ua, ub)
			}
		}
	}
}

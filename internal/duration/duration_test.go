package duration

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Duration
	}{
		{"20ms", FromNanoseconds(20_000_000)},
		{"0.1", FromSeconds(0.1)},
		{"100us", FromNanoseconds(100_000)},
		{"1s", FromNanoseconds(1_000_000_000)},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
	if _, err := Parse("banana"); err == nil {
		t.Error("expected error for non-numeric string")
	}
}

func TestIsNegative(t *testing.T) {
	if FromNanoseconds(5).IsNegative() {
		t.Error("5ns should not be negative")
	}
	if !FromNanoseconds(-5).IsNegative() {
		t.Error("-5ns should be negative")
	}
}

func TestString(t *testing.T) {
	if got := FromNanoseconds(500).String(); got != "500ns" {
		t.Errorf("got %q", got)
	}
	if got := FromNanoseconds(20_000_000).String(); got != "20.000ms" {
		t.Errorf("got %q", got)
	}
}

package canonical

import "testing"

func TestNormalizeDisplay(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"\t\n", ""},
		{"ABC-1985-1", "ABC-1985-1"},
		{"  ABC-1985-1  ", "ABC-1985-1"},
		{"ABC -  1985 - 1", "ABC - 1985 - 1"},
		{"ABC - 1985-1", "ABC - 1985-1"},
		{"ABC-1985-1   (TEMP)", "ABC-1985-1 (TEMP)"},
	}
	for _, tc := range cases {
		if got := NormalizeDisplay(tc.in); got != tc.want {
			t.Errorf("NormalizeDisplay(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestCompact(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"ABC - 1985 - 1", "ABC-1985-1"},
		{"ABC 1985", "ABC1985"},
		{" A B C ", "ABC"},
	}
	for _, tc := range cases {
		if got := Compact(tc.in); got != tc.want {
			t.Errorf("Compact(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestDedupKey(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"    ", ""},
		{"ABC-1985-1", "ABC19851"},
		{"abc - 1985 - 1", "ABC19851"},
		{"AbC-Com-1985-1 (temp)", "ABCCOM19851(TEMP)"},
	}
	for _, tc := range cases {
		if got := DedupKey(tc.in); got != tc.want {
			t.Errorf("DedupKey(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

// Spelling variants of one identifier must collapse to one key, and the key
// must be a fixed point of the function itself.
func TestDedupKeyStableAcrossVariants(t *testing.T) {
	variants := []string{
		"ABC-COM-1985-1",
		"abc-com-1985-1",
		"ABC - COM - 1985 - 1",
		"ABCCOM19851",
		"  abc com 1985 1 ",
	}
	want := DedupKey(variants[0])
	for _, v := range variants {
		got := DedupKey(v)
		if got != want {
			t.Errorf("DedupKey(%q)=%q want %q", v, got, want)
		}
		if again := DedupKey(got); again != got {
			t.Errorf("DedupKey not idempotent: %q -> %q", got, again)
		}
	}
}

package core

import "testing"

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"100", "100", true},
		{"2.5", "2.5", true},
		{"250.50", "250.5", true},
		{" 7 ", "7", true},
		{".5", "0.5", true},
		{"5.", "5", true},
		{"0", "0", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"1,000", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"abc", "", false},
		{"", "", false},
		{"١٢", "", false},
	}
	for _, tc := range cases {
		got, err := ParseQuantity(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

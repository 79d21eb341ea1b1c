package util

import (
	"testing"
	"unicode/utf8"
)

func TestTruncateBytesKeepsRunesWhole(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "h"},
		{"héllo", 3, "hé"},
		{"日本語", 4, "日"},
		{"日本語", 0, ""},
	}
	for _, tc := range cases {
		got := TruncateBytes(tc.in, tc.n)
		if got != tc.want {
			t.Fatalf("TruncateBytes(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("TruncateBytes(%q, %d) produced invalid UTF-8", tc.in, tc.n)
		}
	}
}

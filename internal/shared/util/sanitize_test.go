package util

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "cv.pdf", want: "cv.pdf"},
		{in: "  my cv.docx ", want: "my cv.docx"},
		{in: `C:\fakepath\resume.pdf`, want: "resume.pdf"},
		{in: "uploads/jd.txt", want: "jd.txt"},
		{in: "cv\x00.txt", want: "cv.txt"},
		{in: "v1..final.pdf", want: "v1..final.pdf"},
		{in: "../etc/passwd", err: true},
		{in: `..\secret.txt`, err: true},
		{in: "", err: true},
		{in: "///", err: true},
		{in: ".", err: true},
	}
	for _, tc := range cases {
		got, err := SanitizeFileName(tc.in)
		if tc.err {
			if !errors.Is(err, ErrInvalidFileName) {
				t.Errorf("%q: expected ErrInvalidFileName, got %q, %v", tc.in, got, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%q: got %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestSanitizeFileNameCapsLength(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("a", 500) + ".pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len([]rune(got)) != maxFileNameRunes || !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("expected %d runes ending in .pdf, got %d (%q)", maxFileNameRunes, len([]rune(got)), got[len(got)-8:])
	}
}

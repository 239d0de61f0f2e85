package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameRunes = 200

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName keeps the last path element of a client supplied name
// (browsers may send "C:\fakepath\cv.pdf"), drops control characters and caps
// the length. Names containing a ".." element are rejected.
func SanitizeFileName(name string) (string, error) {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
	for _, p := range parts {
		if strings.TrimSpace(p) == ".." {
			return "", ErrInvalidFileName
		}
	}
	if len(parts) == 0 {
		return "", ErrInvalidFileName
	}

	base := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, parts[len(parts)-1])
	base = strings.TrimSpace(base)
	if base == "" || base == "." {
		return "", ErrInvalidFileName
	}

	if runes := []rune(base); len(runes) > maxFileNameRunes {
		ext := ""
		if i := strings.LastIndex(base, "."); i > 0 && len(base)-i <= 10 {
			ext = base[i:]
		}
		keep := maxFileNameRunes - len([]rune(ext))
		base = string([]rune(strings.TrimSuffix(base, ext))[:keep]) + ext
	}
	return base, nil
}

package util

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"estate-web/pkg/apierror"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

const maxFilenameRunes = 255

// CleanUploadName turns a browser-supplied filename into the name sent to
// the backend: directory parts removed, control and invisible characters
// stripped, reserved characters replaced and length capped.
func CleanUploadName(name string) (string, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	trimmed = path.Base(trimmed)
	if trimmed == "." || trimmed == "/" || trimmed == ".." {
		trimmed = ""
	}
	if trimmed == "" {
		return "", apierror.Validation("file", "filename cannot be empty")
	}

	builder := strings.Builder{}
	builder.Grow(len(trimmed))
	for _, char := range trimmed {
		if char == 0 || unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(invalidFilenameChars.ReplaceAllString(builder.String(), "_"))
	cleaned = strings.TrimLeft(cleaned, ".")
	if cleaned == "" {
		return "", apierror.Validation("file", "filename is invalid after sanitization")
	}

	// Truncate by runes so multi-byte characters stay intact.
	runes := []rune(cleaned)
	if len(runes) > maxFilenameRunes {
		runes = runes[:maxFilenameRunes]
	}

	return string(runes), nil
}

// ReplaceExtension swaps the extension of name for ext.
func ReplaceExtension(name string, ext string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		base = "image"
	}
	return base + ext
}

func isInvisibleUnicode(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u200E', '\u200F',
		'\u2060', '\u2061', '\u2062', '\u2063', '\u2064',
		'\uFEFF', '\uFFF9', '\uFFFA', '\uFFFB':
		return true
	}

	return unicode.Is(unicode.Cf, r)
}

package util

import "strings"

var formatMIME = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

// MIMEForFormat maps an image.Decode format name to its content type.
func MIMEForFormat(format string) string {
	if mime, ok := formatMIME[strings.ToLower(format)]; ok {
		return mime
	}
	return "application/octet-stream"
}

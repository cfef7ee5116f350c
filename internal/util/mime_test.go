package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMIMEForFormat(t *testing.T) {
	t.Parallel()

	require.Equal(t, "image/jpeg", MIMEForFormat("jpeg"))
	require.Equal(t, "image/webp", MIMEForFormat("WEBP"))
	require.Equal(t, "application/octet-stream", MIMEForFormat("svg"))
}

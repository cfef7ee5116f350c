package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestCleanUploadName(t *testing.T) {
	t.Parallel()

	t.Run("drops directory components", func(t *testing.T) {
		actual, err := CleanUploadName(`C:\Users\me\Pictures\living room.jpg`)
		require.NoError(t, err)
		require.Equal(t, "living room.jpg", actual)
	})

	t.Run("replaces reserved characters", func(t *testing.T) {
		actual, err := CleanUploadName(` view<2026>?.png `)
		require.NoError(t, err)
		require.Equal(t, "view_2026__.png", actual)
	})

	t.Run("strips invisible characters", func(t *testing.T) {
		actual, err := CleanUploadName("bal\u200Bcony\uFEFF.webp")
		require.NoError(t, err)
		require.Equal(t, "balcony.webp", actual)
	})

	t.Run("strips leading dots", func(t *testing.T) {
		actual, err := CleanUploadName("..hidden.png")
		require.NoError(t, err)
		require.Equal(t, "hidden.png", actual)
	})

	t.Run("rejects empty names", func(t *testing.T) {
		_, err := CleanUploadName("   ")
		require.Error(t, err)

		_, err = CleanUploadName("\u200B\u200C")
		require.Error(t, err)
	})

	t.Run("truncates by runes", func(t *testing.T) {
		actual, err := CleanUploadName(strings.Repeat("é", 300) + ".png")
		require.NoError(t, err)
		require.Equal(t, maxFilenameRunes, utf8.RuneCountInString(actual))
		require.True(t, utf8.ValidString(actual))
	})
}

func TestReplaceExtension(t *testing.T) {
	t.Parallel()

	require.Equal(t, "facade.jpg", ReplaceExtension("facade.png", ".jpg"))
	require.Equal(t, "plan.jpg", ReplaceExtension("plan", ".jpg"))
}

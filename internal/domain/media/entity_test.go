package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindFromExt(t *testing.T) {
	cases := map[string]Kind{
		".jpg":  KindPhoto,
		".jpeg": KindPhoto,
		".png":  KindPhoto,
		".mp4":  KindVideo,
		".avi":  KindVideo,
		".mov":  KindVideo,
		".mkv":  KindVideo,
		".gif":  "",
		".pdf":  "",
		"":      "",
	}
	for ext, want := range cases {
		require.Equal(t, want, KindFromExt(ext), "ext %q", ext)
	}
}

func TestStatusTerminal(t *testing.T) {
	require.False(t, StatusPending.Terminal())
	require.False(t, StatusProcessing.Terminal())
	require.True(t, StatusDone.Terminal())
	require.True(t, StatusFailed.Terminal())
}

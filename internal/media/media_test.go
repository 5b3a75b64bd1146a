package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ref  string
		want Resolved
	}{
		{"short link", "https://youtu.be/abc123", Resolved{Embed, "https://www.youtube.com/embed/abc123", false}},
		{"short link drops query", "https://youtu.be/abc123?t=42&si=x", Resolved{Embed, "https://www.youtube.com/embed/abc123", false}},
		{"long form", "https://www.youtube.com/watch?v=xyz789", Resolved{Embed, "https://www.youtube.com/embed/xyz789", false}},
		{"long form mobile", "https://m.youtube.com/watch?v=xyz789&list=abc", Resolved{Embed, "https://www.youtube.com/embed/xyz789", false}},
		{"long form without id", "https://www.youtube.com/watch?list=abc", Resolved{Embed, "https://www.youtube.com/embed/", true}},
		{"direct file", "https://example.com/demo.mp4", Resolved{Direct, "https://example.com/demo.mp4", false}},
		{"relative path", "media/demo.webm", Resolved{Direct, "media/demo.webm", false}},
		{"lookalike host", "https://notyoutube.com/watch?v=abc", Resolved{Direct, "https://notyoutube.com/watch?v=abc", false}},
		{"malformed", "http://[::1", Resolved{Direct, "http://[::1", false}},
		{"control chars", "https://exa\x7fmple.com/a.mp4", Resolved{Direct, "https://exa\x7fmple.com/a.mp4", false}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Classify(tc.ref))
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, ref := range []string{"https://youtu.be/abc123", "https://example.com/demo.mp4", "%%%"} {
		require.Equal(t, Classify(ref), Classify(ref))
	}
}

func TestElementsKeepsFirstTwo(t *testing.T) {
	t.Parallel()

	els := Elements([]string{
		"https://youtu.be/one",
		"https://example.com/two.mp4",
		"https://example.com/three.mp4",
	})
	require.Len(t, els, 2)
	require.True(t, els[0].IsEmbed())
	require.Equal(t, IframeAllow, els[0].Allow)
	require.False(t, els[1].IsEmbed())
	require.Empty(t, els[1].Allow)
	require.Equal(t, "https://example.com/two.mp4", els[1].Target)

	require.Empty(t, Elements(nil))
}

package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestV1EscapesUsernameSpecials(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"under_score", `under\_score`},
		{"star*name", `star\*name`},
		{"tick`name", "tick\\`name"},
		{"open[bracket", `open\[bracket`},
		{"_lead_and_trail_", `\_lead\_and\_trail\_`},
		{"+14155550123", "+14155550123"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, V1(tc.in), "input %q", tc.in)
	}
}

func TestV2EscapesFullSpecialSet(t *testing.T) {
	got := V2(mdV2Specials)
	want := ""
	for _, r := range mdV2Specials {
		want += `\` + string(r)
	}
	assert.Equal(t, want, got)

	// V2 specials that V1 leaves alone.
	assert.Equal(t, "dot.dash-bang!", V1("dot.dash-bang!"))
	assert.Equal(t, `dot\.dash\-bang\!`, V2("dot.dash-bang!"))
}

func TestEscapeMarkdownVersions(t *testing.T) {
	v1, err := EscapeMarkdown("a_b", MarkdownV1)
	require.NoError(t, err)
	assert.Equal(t, `a\_b`, v1)

	v2, err := EscapeMarkdown("a.b", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, `a\.b`, v2)

	_, err = EscapeMarkdown("a", 3)
	assert.Error(t, err)
}

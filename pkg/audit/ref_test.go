package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		in   string
		want Ref
	}{
		{"acme/widget", Ref{"acme", "widget"}},
		{"  acme/widget  ", Ref{"acme", "widget"}},
		{"facebook/react.js", Ref{"facebook", "react.js"}},
		{"my-org/my_repo", Ref{"my-org", "my_repo"}},
		{"https://github.com/acme/widget", Ref{"acme", "widget"}},
		{"https://github.com/acme/widget/", Ref{"acme", "widget"}},
		{"https://github.com/acme/widget.git", Ref{"acme", "widget"}},
		{"https://www.github.com/acme/widget/tree/main/docs", Ref{"acme", "widget"}},
		{"github.com/acme/widget", Ref{"acme", "widget"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRef_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"acme",
		"acme/",
		"/widget",
		"acme/widget/extra",
		"acme widget",
		"-acme/widget",
		"acme/..",
		"https://gitlab.com/acme/widget",
		"https://github.com/acme",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseRef(in)
			assert.ErrorIs(t, err, ErrInvalidRef)
		})
	}
}

func TestRefString(t *testing.T) {
	assert.Equal(t, "acme/widget", Ref{Owner: "acme", Name: "widget"}.String())
}

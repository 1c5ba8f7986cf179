package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"3012345", "+2203012345"},
		{"301 23 45", "+2203012345"},
		{"03012345", "+2203012345"},
		{"2203012345", "+2203012345"},
		{"+220 301 2345", "+2203012345"},
		{"(220) 301-2345", "+2203012345"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePhone(tc.in), "input %q", tc.in)
	}
}

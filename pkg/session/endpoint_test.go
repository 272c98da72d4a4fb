package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Endpoint
		str      string
	}{
		{"10.123.224.192:9999", Endpoint{Host: "10.123.224.192", Port: 9999}, "10.123.224.192:9999"},
		{"3ds.lan", Endpoint{Host: "3ds.lan", Port: DefaultPort}, "3ds.lan:9999"},
		{"[::1]:1234", Endpoint{Host: "::1", Port: 1234}, "[::1]:1234"},
		{"[::1]", Endpoint{Host: "::1", Port: DefaultPort}, "[::1]:9999"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			e, err := ParseEndpoint(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, e)
			assert.Equal(t, tc.str, e.String())
		})
	}

	for _, in := range []string{"", "host:0", "host:65536", "host:port", ":9999"} {
		t.Run("invalid_"+in, func(t *testing.T) {
			_, err := ParseEndpoint(in)
			assert.Error(t, err)
		})
	}
}

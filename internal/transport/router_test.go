package transport

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedTransport string

func (n namedTransport) Fetch(_ context.Context, locator string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(n) + ":" + locator)), nil
}

func TestRouter(t *testing.T) {
	r := NewRouter(namedTransport("keys"), namedTransport("urls"))

	tests := []struct {
		locator string
		want    string
	}{
		{locator: "maps/a.eqg", want: "keys:maps/a.eqg"},
		{locator: "https://cdn.example.com/a.eqg", want: "urls:https://cdn.example.com/a.eqg"},
		{locator: "HTTP://cdn.example.com/a.eqg", want: "urls:HTTP://cdn.example.com/a.eqg"},
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			body, err := r.Fetch(context.Background(), tt.locator)
			require.NoError(t, err)
			data, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

package util

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proxyFor(t *testing.T, fn func(*http.Request) (*url.URL, error), target string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, target, nil)
	require.NoError(t, err)
	u, err := fn(req)
	require.NoError(t, err)
	if u == nil {
		return ""
	}
	return u.String()
}

func TestNewProxyFunc(t *testing.T) {
	t.Setenv("NO_PROXY", "")
	t.Setenv("no_proxy", "")

	fn := NewProxyFunc("http://proxy:3128", "http://secure-proxy:3128", "internal.example.com")

	assert.Equal(t, "http://proxy:3128", proxyFor(t, fn, "http://api.example.com/v1"))
	assert.Equal(t, "http://secure-proxy:3128", proxyFor(t, fn, "https://api.openai.com/v1/chat/completions"))
	assert.Empty(t, proxyFor(t, fn, "https://internal.example.com/v1"), "no_proxy hosts go direct")
}

func TestNewProxyFunc_HTTPSFallsBackToHTTPProxy(t *testing.T) {
	t.Setenv("NO_PROXY", "")
	t.Setenv("no_proxy", "")

	fn := NewProxyFunc("http://proxy:3128", "", "")
	assert.Equal(t, "http://proxy:3128", proxyFor(t, fn, "https://api.anthropic.com/v1/messages"))
}

func TestNewProxyFunc_NoProxyFromEnvironment(t *testing.T) {
	t.Setenv("NO_PROXY", "generativelanguage.googleapis.com")

	fn := NewProxyFunc("http://proxy:3128", "", "")
	assert.Empty(t, proxyFor(t, fn, "https://generativelanguage.googleapis.com/v1beta/models"))
}

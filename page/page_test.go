package page

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHost(t *testing.T) {
	u, _ := url.Parse("https://WWW.Reddit.com:443/r/golang")
	assert.Equal(t, "www.reddit.com", Host(u))
	assert.Equal(t, "", Host(nil))
}

func TestHostMatches(t *testing.T) {
	tests := []struct {
		host, domain string
		want         bool
	}{
		{"github.com", "github.com", true},
		{"gist.github.com", "github.com", true},
		{"notgithub.com", "github.com", false},
		{"github.com.evil.io", "github.com", false},
		{"m.youtube.com", "youtube.com", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HostMatches(tt.host, tt.domain), "%s vs %s", tt.host, tt.domain)
	}
}

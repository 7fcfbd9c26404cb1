package network

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	c, err := NewHTTPClient("", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.Timeout)

	c, err = NewHTTPClient("127.0.0.1", time.Second)
	require.NoError(t, err)
	assert.NotNil(t, c.Transport)

	_, err = NewHTTPClient("definitely-not-an-interface0", time.Second)
	assert.Error(t, err)
}

func TestResolveBindAddr(t *testing.T) {
	addr, err := resolveBindAddr("10.1.2.3")
	require.NoError(t, err)
	assert.True(t, addr.IP.Equal(net.ParseIP("10.1.2.3")))
}

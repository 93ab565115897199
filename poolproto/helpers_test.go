package poolproto

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

func TestSplitHostPortParsesWellFormedAddr(t *testing.T) {
	host, port := splitHostPort(&net.TCPAddr{IP: net.ParseIP("192.0.2.1"), Port: 4444})
	require.Equal(t, "192.0.2.1", host)
	require.Equal(t, 4444, port)
}

func TestSplitHostPortFallsBackOnMalformedAddr(t *testing.T) {
	host, port := splitHostPort(fakeAddr("not-a-host-port"))
	require.Equal(t, "not-a-host-port", host)
	require.Equal(t, 0, port)
}

func TestFreshPoolNonceMatchesReserveSizeAndVaries(t *testing.T) {
	a, err := freshPoolNonce(4)
	require.NoError(t, err)
	require.Len(t, a, 8) // hex-encoded

	b, err := freshPoolNonce(4)
	require.NoError(t, err)
	require.NotEqual(t, a, b, "two freshly generated nonces should not collide in practice")
}

func TestFreshPoolNonceZeroSizeIsEmptyString(t *testing.T) {
	nonce, err := freshPoolNonce(0)
	require.NoError(t, err)
	require.Equal(t, "", nonce)
}

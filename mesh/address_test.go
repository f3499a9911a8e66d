package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeerAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    PeerAddress
		wantErr bool
	}{
		{in: "127.0.0.1:6787", want: PeerAddress{Host: "127.0.0.1", Port: 6787}},
		{in: " localhost:1 ", want: PeerAddress{Host: "localhost", Port: 1}},
		{in: "[::1]:6001", want: PeerAddress{Host: "::1", Port: 6001}},
		{in: "127.0.0.1", wantErr: true},
		{in: ":6787", wantErr: true},
		{in: "host:0", wantErr: true},
		{in: "host:65536", wantErr: true},
		{in: "host:port", wantErr: true},
	}

	for _, test := range tests {
		got, err := ParsePeerAddress(test.in)
		if test.wantErr {
			assert.ErrorIs(t, err, ErrInvalidAddress, test.in)
			continue
		}
		require.NoError(t, err, test.in)
		assert.Equal(t, test.want, got, test.in)
	}
}

func TestPeerAddressString(t *testing.T) {
	assert.Equal(t, "127.0.0.1:6001", PeerAddress{Host: "127.0.0.1", Port: 6001}.String())
	assert.Equal(t, "[::1]:6001", PeerAddress{Host: "::1", Port: 6001}.String())
}

func TestNewPeerAddress(t *testing.T) {
	addr, err := NewPeerAddress(" 10.0.0.2 ", " 7000")
	require.NoError(t, err)
	assert.Equal(t, PeerAddress{Host: "10.0.0.2", Port: 7000}, addr)

	_, err = NewPeerAddress("", "7000")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewPeerAddress("10.0.0.2", "-1")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

//go:build linux

package ethercat

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEthernetFrame(t *testing.T) {
	src := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	payload, err := MarshalFrame([]Datagram{
		{Command: CmdBRD, Address: positionAddress(0, regType), Data: make([]byte, 2)},
	})
	require.Nil(t, err)

	frame := ethernetFrame(src, payload)
	require.Equal(t, ethernetHeaderSize+len(payload), len(frame))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, frame[0:6])
	assert.Equal(t, []byte(src), frame[6:12])
	// EtherType 0x88A4, network byte order
	assert.Equal(t, []byte{0x88, 0xA4}, frame[12:14])
	assert.Equal(t, payload, frame[ethernetHeaderSize:])
}

func TestInboundPacket(t *testing.T) {
	// The local echo of a transmitted frame must not be taken for the
	// frame returning from the ring
	assert.False(t, inboundPacket(&unix.SockaddrLinklayer{Pkttype: unix.PACKET_OUTGOING}))
	assert.True(t, inboundPacket(&unix.SockaddrLinklayer{Pkttype: unix.PACKET_HOST}))
	assert.True(t, inboundPacket(&unix.SockaddrLinklayer{Pkttype: unix.PACKET_BROADCAST}))
	assert.True(t, inboundPacket(&unix.SockaddrLinklayer{Pkttype: unix.PACKET_OTHERHOST}))
}

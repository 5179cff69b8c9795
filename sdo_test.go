package ethercat

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDODownloadRequest(t *testing.T) {
	buf, err := sdoDownloadRequest(0x1001, objInterpolationPeriod, 1, []byte{2}, 1)
	require.Nil(t, err)
	require.Equal(t, 16, len(buf))

	// Mailbox header : CoE payload length, station, type + counter
	assert.Equal(t, uint16(10), binary.LittleEndian.Uint16(buf[0:2]))
	assert.Equal(t, uint16(0x1001), binary.LittleEndian.Uint16(buf[2:4]))
	assert.Equal(t, byte(mailboxTypeCoE|1<<4), buf[5])
	// CoE header : SDO request service
	assert.Equal(t, uint16(coeServiceSDORequest)<<12, binary.LittleEndian.Uint16(buf[6:8]))
	// Expedited download of one byte
	assert.Equal(t, byte(0x2F), buf[8])
	assert.Equal(t, uint16(0x60C2), binary.LittleEndian.Uint16(buf[9:11]))
	assert.Equal(t, byte(1), buf[11])
	assert.Equal(t, byte(2), buf[12])
}

func TestSDODownloadRequestSizes(t *testing.T) {
	buf, err := sdoDownloadRequest(0x1001, 0x6072, 0, []byte{0xE8, 0x03}, 2)
	require.Nil(t, err)
	assert.Equal(t, byte(0x2B), buf[8]) // two bytes expedited

	buf, err = sdoDownloadRequest(0x1001, 0x60FF, 0, []byte{1, 2, 3, 4}, 3)
	require.Nil(t, err)
	assert.Equal(t, byte(0x23), buf[8]) // four bytes expedited

	_, err = sdoDownloadRequest(0x1001, 0x60FF, 0, nil, 4)
	assert.Equal(t, ErrIllegalArgument, err)
	_, err = sdoDownloadRequest(0x1001, 0x60FF, 0, make([]byte, 5), 5)
	assert.Equal(t, ErrIllegalArgument, err)
}

func buildSDOResponse(command byte, index uint16, subindex uint8, data uint32) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint16(buf[0:2], 10)
	buf[5] = mailboxTypeCoE
	binary.LittleEndian.PutUint16(buf[6:8], uint16(coeServiceSDOResponse)<<12)
	buf[8] = command
	binary.LittleEndian.PutUint16(buf[9:11], index)
	buf[11] = subindex
	binary.LittleEndian.PutUint32(buf[12:16], data)
	return buf
}

func TestParseSDOResponse(t *testing.T) {
	buf := buildSDOResponse(sdoCommandDownloadResp, 0x60C2, 1, 0)
	assert.Nil(t, parseSDOResponse(buf, 0x60C2, 1))

	// Abort carries its code
	buf = buildSDOResponse(sdoCommandAbort, 0x60C2, 1, 0x06010002)
	err := parseSDOResponse(buf, 0x60C2, 1)
	assert.ErrorIs(t, err, ErrSDOAbort)
	assert.Contains(t, err.Error(), "06010002")

	// Response for a different object
	buf = buildSDOResponse(sdoCommandDownloadResp, 0x6040, 0, 0)
	assert.NotNil(t, parseSDOResponse(buf, 0x60C2, 1))

	assert.Equal(t, ErrFrameTooShort, parseSDOResponse(make([]byte, 4), 0x60C2, 1))
}

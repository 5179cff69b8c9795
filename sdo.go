package ethercat

import (
	"encoding/binary"
	"fmt"
)

// CoE (CAN application protocol over EtherCAT) mailbox framing for the
// one configuration access this drive needs : expedited SDO downloads of
// up to 4 bytes. Segmented and block transfers are not implemented.

const (
	mailboxHeaderSize = 6
	mailboxTypeCoE    = 0x03

	coeHeaderSize         = 2
	coeServiceSDORequest  = 0x02
	coeServiceSDOResponse = 0x03

	sdoHeaderSize          = 8
	sdoCommandDownloadResp = 0x60
	sdoCommandAbort        = 0x80
)

// sdoDownloadRequest builds a complete mailbox frame for an expedited
// SDO download. counter is the 3 bit mailbox sequence counter, it must
// never be zero.
func sdoDownloadRequest(station uint16, index uint16, subindex uint8, value []byte, counter uint8) ([]byte, error) {
	if len(value) == 0 || len(value) > 4 {
		return nil, ErrIllegalArgument
	}
	buf := make([]byte, mailboxHeaderSize+coeHeaderSize+sdoHeaderSize)
	// Mailbox header
	binary.LittleEndian.PutUint16(buf[0:2], coeHeaderSize+sdoHeaderSize)
	binary.LittleEndian.PutUint16(buf[2:4], station)
	buf[4] = 0 // channel, priority
	buf[5] = mailboxTypeCoE | (counter&0x07)<<4
	// CoE header
	binary.LittleEndian.PutUint16(buf[6:8], uint16(coeServiceSDORequest)<<12)
	// SDO download expedited, size indicated
	buf[8] = 0x23 | byte(4-len(value))<<2
	binary.LittleEndian.PutUint16(buf[9:11], index)
	buf[11] = subindex
	copy(buf[12:16], value)
	return buf, nil
}

// parseSDOResponse validates a mailbox frame against the request it
// answers. Aborts are surfaced with their abort code.
func parseSDOResponse(buf []byte, index uint16, subindex uint8) error {
	if len(buf) < mailboxHeaderSize+coeHeaderSize+sdoHeaderSize {
		return ErrFrameTooShort
	}
	if buf[5]&0x0F != mailboxTypeCoE {
		return fmt.Errorf("unexpected mailbox type x%02X", buf[5]&0x0F)
	}
	service := binary.LittleEndian.Uint16(buf[6:8]) >> 12
	if service != coeServiceSDOResponse {
		return fmt.Errorf("unexpected CoE service %v", service)
	}
	command := buf[8]
	respIndex := binary.LittleEndian.Uint16(buf[9:11])
	respSub := buf[11]
	if command&0xE0 == sdoCommandAbort {
		abort := binary.LittleEndian.Uint32(buf[12:16])
		return fmt.Errorf("%w : x%04X:%02X abort code x%08X", ErrSDOAbort, respIndex, respSub, abort)
	}
	if command&0xE0 != sdoCommandDownloadResp {
		return fmt.Errorf("unexpected SDO command x%02X", command)
	}
	if respIndex != index || respSub != subindex {
		return fmt.Errorf("SDO response for x%04X:%02X, expected x%04X:%02X", respIndex, respSub, index, subindex)
	}
	return nil
}

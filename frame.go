package ethercat

import (
	"encoding/binary"
)

// EtherCAT datagram commands
type Command uint8

const (
	CmdNOP  Command = 0  // no operation
	CmdAPRD Command = 1  // auto increment read
	CmdAPWR Command = 2  // auto increment write
	CmdAPRW Command = 3  // auto increment read write
	CmdFPRD Command = 4  // configured address read
	CmdFPWR Command = 5  // configured address write
	CmdFPRW Command = 6  // configured address read write
	CmdBRD  Command = 7  // broadcast read
	CmdBWR  Command = 8  // broadcast write
	CmdBRW  Command = 9  // broadcast read write
	CmdLRD  Command = 10 // logical read
	CmdLWR  Command = 11 // logical write
	CmdLRW  Command = 12 // logical read write
)

var commandNames = map[Command]string{
	CmdNOP:  "NOP",
	CmdAPRD: "APRD",
	CmdAPWR: "APWR",
	CmdAPRW: "APRW",
	CmdFPRD: "FPRD",
	CmdFPWR: "FPWR",
	CmdFPRW: "FPRW",
	CmdBRD:  "BRD",
	CmdBWR:  "BWR",
	CmdBRW:  "BRW",
	CmdLRD:  "LRD",
	CmdLWR:  "LWR",
	CmdLRW:  "LRW",
}

func (c Command) String() string {
	name, ok := commandNames[c]
	if ok {
		return name
	}
	return "UNKNOWN"
}

const (
	datagramHeaderSize = 10
	datagramTrailer    = 2 // working counter
	frameHeaderSize    = 2
	maxFrameData       = 1470
	frameTypeCommand   = 0x01
)

// Datagram is one EtherCAT command inside a frame. Address is the
// combined 16 bit slave address and 16 bit offset (or a plain 32 bit
// logical address for LRD/LWR/LRW). The working counter is filled in from
// the wire on unmarshal.
type Datagram struct {
	Command        Command
	Index          uint8
	Address        uint32
	Data           []byte
	WorkingCounter uint16
}

// positionAddress builds the address field for auto increment commands.
// Position 0 is the first slave on the segment.
func positionAddress(position uint16, offset uint16) uint32 {
	adp := uint16(0) - position
	return uint32(adp) | uint32(offset)<<16
}

// stationAddress builds the address field for configured address commands.
func stationAddress(station uint16, offset uint16) uint32 {
	return uint32(station) | uint32(offset)<<16
}

func (d *Datagram) size() int {
	return datagramHeaderSize + len(d.Data) + datagramTrailer
}

// marshalTo writes the datagram into buf and returns the number of bytes
// written. more marks the frame as having further datagrams behind this
// one.
func (d *Datagram) marshalTo(buf []byte, more bool) int {
	buf[0] = byte(d.Command)
	buf[1] = d.Index
	binary.LittleEndian.PutUint32(buf[2:6], d.Address)
	length := uint16(len(d.Data)) & 0x07FF
	if more {
		length |= 0x8000
	}
	binary.LittleEndian.PutUint16(buf[6:8], length)
	binary.LittleEndian.PutUint16(buf[8:10], 0) // irq
	copy(buf[10:], d.Data)
	binary.LittleEndian.PutUint16(buf[10+len(d.Data):], d.WorkingCounter)
	return d.size()
}

// MarshalFrame serializes datagrams into one EtherCAT frame, without the
// ethernet header.
func MarshalFrame(datagrams []Datagram) ([]byte, error) {
	if len(datagrams) == 0 {
		return nil, ErrIllegalArgument
	}
	total := 0
	for i := range datagrams {
		total += datagrams[i].size()
	}
	if total > maxFrameData {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, frameHeaderSize+total)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(total)&0x07FF|uint16(frameTypeCommand)<<12)
	offset := frameHeaderSize
	for i := range datagrams {
		more := i < len(datagrams)-1
		offset += datagrams[i].marshalTo(buf[offset:], more)
	}
	return buf, nil
}

// UnmarshalFrame parses an EtherCAT frame back into its datagrams,
// working counters included.
func UnmarshalFrame(buf []byte) ([]Datagram, error) {
	if len(buf) < frameHeaderSize {
		return nil, ErrFrameTooShort
	}
	header := binary.LittleEndian.Uint16(buf[0:2])
	if header>>12&0x0F != frameTypeCommand {
		return nil, ErrFrameType
	}
	length := int(header & 0x07FF)
	if len(buf) < frameHeaderSize+length {
		return nil, ErrFrameTooShort
	}
	buf = buf[frameHeaderSize : frameHeaderSize+length]

	datagrams := []Datagram{}
	more := true
	for more {
		if len(buf) < datagramHeaderSize+datagramTrailer {
			return nil, ErrFrameTooShort
		}
		lenWord := binary.LittleEndian.Uint16(buf[6:8])
		dataLen := int(lenWord & 0x07FF)
		more = lenWord&0x8000 != 0
		if len(buf) < datagramHeaderSize+dataLen+datagramTrailer {
			return nil, ErrFrameTooShort
		}
		d := Datagram{
			Command: Command(buf[0]),
			Index:   buf[1],
			Address: binary.LittleEndian.Uint32(buf[2:6]),
			Data:    append([]byte{}, buf[datagramHeaderSize:datagramHeaderSize+dataLen]...),
		}
		d.WorkingCounter = binary.LittleEndian.Uint16(buf[datagramHeaderSize+dataLen:])
		datagrams = append(datagrams, d)
		buf = buf[datagramHeaderSize+dataLen+datagramTrailer:]
	}
	return datagrams, nil
}

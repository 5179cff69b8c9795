package ethercat

import "encoding/binary"

// Fixed process data layout of the drive. Both images must match the
// device object mapping byte for byte, reserved byte included.
const (
	OutputsSize = 16
	InputsSize  = 16
)

// Outputs is the cyclic command image. It is written only by the
// DriveController and by the shutdown sequence.
type Outputs struct {
	ControlWord    uint16 // 0x6040
	TargetPosition int32  // 0x607A, present for layout compatibility
	TargetVelocity int32  // 0x60FF, native units
	TargetTorque   int16  // 0x6071, unused in velocity mode
	MaxTorque      uint16 // 0x6072
	Mode           int8   // 0x6060
}

// Inputs is the cyclic feedback image. It is written only by the bus
// layer during receive.
type Inputs struct {
	StatusWord     uint16 // 0x6041
	ActualPosition int32  // 0x6064
	ActualVelocity int32  // 0x606C, native units
	ActualTorque   int16  // 0x6077
	ErrorCode      uint16 // 0x603F
	ModeDisplay    int8   // 0x6061
}

func (o *Outputs) MarshalTo(buf []byte) error {
	if len(buf) < OutputsSize {
		return ErrIllegalArgument
	}
	binary.LittleEndian.PutUint16(buf[0:2], o.ControlWord)
	binary.LittleEndian.PutUint32(buf[2:6], uint32(o.TargetPosition))
	binary.LittleEndian.PutUint32(buf[6:10], uint32(o.TargetVelocity))
	binary.LittleEndian.PutUint16(buf[10:12], uint16(o.TargetTorque))
	binary.LittleEndian.PutUint16(buf[12:14], o.MaxTorque)
	buf[14] = byte(o.Mode)
	buf[15] = 0
	return nil
}

func (in *Inputs) UnmarshalFrom(buf []byte) error {
	if len(buf) < InputsSize {
		return ErrIllegalArgument
	}
	in.StatusWord = binary.LittleEndian.Uint16(buf[0:2])
	in.ActualPosition = int32(binary.LittleEndian.Uint32(buf[2:6]))
	in.ActualVelocity = int32(binary.LittleEndian.Uint32(buf[6:10]))
	in.ActualTorque = int16(binary.LittleEndian.Uint16(buf[10:12]))
	in.ErrorCode = binary.LittleEndian.Uint16(buf[12:14])
	in.ModeDisplay = int8(buf[14])
	return nil
}

// MarshalTo writes the feedback image, the drive side of the exchange.
func (in *Inputs) MarshalTo(buf []byte) error {
	if len(buf) < InputsSize {
		return ErrIllegalArgument
	}
	binary.LittleEndian.PutUint16(buf[0:2], in.StatusWord)
	binary.LittleEndian.PutUint32(buf[2:6], uint32(in.ActualPosition))
	binary.LittleEndian.PutUint32(buf[6:10], uint32(in.ActualVelocity))
	binary.LittleEndian.PutUint16(buf[10:12], uint16(in.ActualTorque))
	binary.LittleEndian.PutUint16(buf[12:14], in.ErrorCode)
	buf[14] = byte(in.ModeDisplay)
	buf[15] = 0
	return nil
}

func (o *Outputs) UnmarshalFrom(buf []byte) error {
	if len(buf) < OutputsSize {
		return ErrIllegalArgument
	}
	o.ControlWord = binary.LittleEndian.Uint16(buf[0:2])
	o.TargetPosition = int32(binary.LittleEndian.Uint32(buf[2:6]))
	o.TargetVelocity = int32(binary.LittleEndian.Uint32(buf[6:10]))
	o.TargetTorque = int16(binary.LittleEndian.Uint16(buf[10:12]))
	o.MaxTorque = binary.LittleEndian.Uint16(buf[12:14])
	o.Mode = int8(buf[14])
	return nil
}

// ProcessImage is the shared frame exchanged each cycle. It is allocated
// once by the master during mapping and referenced by the engine for the
// life of the run.
type ProcessImage struct {
	Out Outputs
	In  Inputs
}

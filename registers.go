package ethercat

// ESC (EtherCAT slave controller) register addresses used by the raw
// master. Only the subset needed here, addressing follows the standard
// register map.
const (
	regType           uint16 = 0x0000 // controller type, used for broadcast slave count
	regStationAddress uint16 = 0x0010 // configured station address
	regALControl      uint16 = 0x0120 // requested AL state
	regALStatus       uint16 = 0x0130 // actual AL state
	regALStatusCode   uint16 = 0x0134 // last AL error code
	regSM0            uint16 = 0x0800 // sync manager 0, mailbox out
	regSM1            uint16 = 0x0808 // sync manager 1, mailbox in
	regSM2            uint16 = 0x0810 // sync manager 2, process data out
	regSM3            uint16 = 0x0818 // sync manager 3, process data in
	regFMMU0          uint16 = 0x0600 // logical -> physical, outputs
	regFMMU1          uint16 = 0x0610 // logical -> physical, inputs
	regDCSystemTime   uint16 = 0x0910
	regDCStartTime0   uint16 = 0x0990 // SYNC0 first pulse
	regDCSyncActive   uint16 = 0x0981
	regDCCycleTime0   uint16 = 0x09A0 // SYNC0 cycle time in ns
)

// Default physical memory layout of the reference drive. Mailbox areas
// come first, process data behind them.
const (
	mailboxOutAddress uint16 = 0x1000
	mailboxInAddress  uint16 = 0x1080
	mailboxSize       uint16 = 128
	outputsAddress    uint16 = 0x1100
	inputsAddress     uint16 = 0x1400
)

// Sync manager control bytes : buffered/mailbox mode, direction, ECAT
// access
const (
	smControlMailboxWrite byte = 0x26
	smControlMailboxRead  byte = 0x22
	smControlOutputs      byte = 0x64
	smControlInputs       byte = 0x20
)

// FMMU access types
const (
	fmmuTypeRead  byte = 0x01
	fmmuTypeWrite byte = 0x02
)

// First configured station address, position 0 gets this one
const baseStationAddress uint16 = 0x1001

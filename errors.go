package ethercat

import "errors"

var (
	ErrIllegalArgument = errors.New("error in function arguments")
	ErrNoSlaves        = errors.New("no responding slaves found on bus")
	ErrStateTimeout    = errors.New("timeout waiting for requested AL state")
	ErrExchangeTimeout = errors.New("timeout waiting for process data frame")
	ErrWorkingCounter  = errors.New("sustained working counter mismatch, communication lost")
	ErrNotMapped       = errors.New("process data has not been mapped")
	ErrMailboxTimeout  = errors.New("timeout waiting for mailbox reply")
	ErrSDOAbort        = errors.New("sdo transfer aborted by slave")
	ErrFrameTooShort   = errors.New("ethercat frame shorter than advertised length")
	ErrFrameType       = errors.New("not an ethercat command frame")
	ErrFrameTooLarge   = errors.New("datagrams exceed maximum frame size")
	ErrClosed          = errors.New("master is closed")
	ErrRawNotSupported = errors.New("raw ethernet transport is only available on linux")
	ErrProfileMissing  = errors.New("device profile is missing a mandatory section")
)

//go:build !linux

package ethercat

func openRawMaster(ifname string) (Master, error) {
	return nil, ErrRawNotSupported
}

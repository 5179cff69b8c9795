//go:build linux

package ethercat

import (
	"encoding/binary"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const ethernetHeaderSize = 14

// rawLink sends EtherCAT frames over an AF_PACKET socket bound to one
// interface. Receive is bounded by SO_RCVTIMEO so the cyclic loop always
// regains control.
type rawLink struct {
	fd  int
	src net.HardwareAddr
	rx  []byte
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}

func openRawLink(ifname string) (*rawLink, error) {
	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("interface %v : %w", ifname, err)
	}
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(etherTypeEtherCAT)))
	if err != nil {
		return nil, fmt.Errorf("opening raw socket (needs CAP_NET_RAW) : %w", err)
	}
	sll := &unix.SockaddrLinklayer{
		Protocol: htons(etherTypeEtherCAT),
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, sll); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("binding to %v : %w", ifname, err)
	}
	timeout := unix.NsecToTimeval(DefaultReceiveTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &timeout); err != nil {
		unix.Close(fd)
		return nil, err
	}
	log.Infof("[MASTER] raw link open on %v", ifname)
	return &rawLink{fd: fd, src: ifi.HardwareAddr, rx: make([]byte, 1518)}, nil
}

func (l *rawLink) SendReceive(payload []byte) ([]byte, error) {
	if _, err := unix.Write(l.fd, ethernetFrame(l.src, payload)); err != nil {
		return nil, err
	}
	for {
		n, from, err := unix.Recvfrom(l.fd, l.rx, 0)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return nil, ErrExchangeTimeout
		}
		if err != nil {
			return nil, err
		}
		// The socket also delivers a copy of the frame just transmitted
		// (PACKET_OUTGOING). Accepting it would hand roundTrip its own
		// outputs back with working counter zero, only the frame that
		// traveled the ring counts.
		if !inboundPacket(from) {
			continue
		}
		// The socket protocol filter already limits us to EtherCAT frames
		if n < ethernetHeaderSize {
			continue
		}
		out := make([]byte, n-ethernetHeaderSize)
		copy(out, l.rx[ethernetHeaderSize:n])
		return out, nil
	}
}

// ethernetFrame wraps an EtherCAT payload in an ethernet header. The
// destination is broadcast, the ring topology returns the frame to us.
func ethernetFrame(src net.HardwareAddr, payload []byte) []byte {
	frame := make([]byte, ethernetHeaderSize+len(payload))
	copy(frame[0:6], []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	copy(frame[6:12], src)
	binary.BigEndian.PutUint16(frame[12:14], etherTypeEtherCAT)
	copy(frame[ethernetHeaderSize:], payload)
	return frame
}

// inboundPacket reports whether a received frame actually came off the
// wire, filtering the local echo of transmitted frames.
func inboundPacket(from unix.Sockaddr) bool {
	sll, ok := from.(*unix.SockaddrLinklayer)
	if !ok {
		return true
	}
	return sll.Pkttype != unix.PACKET_OUTGOING
}

func (l *rawLink) Close() error {
	return unix.Close(l.fd)
}

func openRawMaster(ifname string) (Master, error) {
	link, err := openRawLink(ifname)
	if err != nil {
		return nil, err
	}
	return newRawMaster(link, DefaultProfile()), nil
}

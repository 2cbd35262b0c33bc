package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

// Same-network mode encodes the host's IPv4 address as an 8 hex-char room
// id so viewers can type it instead of an IP.

var ErrBadLANCode = errors.New("invalid LAN room code")

func EncodeRoomID(ip net.IP) (domain.RoomID, error) {
	v4 := ip.To4()
	if v4 == nil {
		return "", fmt.Errorf("%w: not an IPv4 address", ErrBadLANCode)
	}
	return domain.RoomID(strings.ToUpper(hex.EncodeToString(v4))), nil
}

func DecodeRoomID(id domain.RoomID) (net.IP, error) {
	if len(id) != 8 {
		return nil, fmt.Errorf("%w: %q", ErrBadLANCode, id)
	}
	b, err := hex.DecodeString(strings.ToLower(string(id)))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadLANCode, id)
	}
	return net.IPv4(b[0], b[1], b[2], b[3]), nil
}

// LocalIPv4 picks the first non-loopback IPv4 interface address.
func LocalIPv4() net.IP {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return net.IPv4(127, 0, 0, 1)
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4
		}
	}
	return net.IPv4(127, 0, 0, 1)
}

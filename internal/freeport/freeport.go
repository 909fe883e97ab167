package freeport

import (
	"net"
)

// Loopback returns a "127.0.0.1:port" address whose port was free
// at the time of the call.
func Loopback() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")

	if err != nil {
		return "", err
	}

	defer ln.Close()

	return ln.Addr().String(), nil
}

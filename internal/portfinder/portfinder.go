// Package portfinder picks a free TCP port on the loopback interface.
package portfinder

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strconv"
)

var (
	ErrInvalidRange = errors.New("portfinder: invalid port range")
	ErrNoFreePort   = errors.New("portfinder: no free port in range")
)

const loopback = "127.0.0.1"

// Find tries the ports in [minPort, maxPort] in random order and returns the
// first one that can be bound on 127.0.0.1. The port is released before
// returning, so a caller racing other processes may still lose it.
func Find(minPort, maxPort int) (int, error) {
	if minPort <= 0 || maxPort > 65535 || minPort > maxPort {
		return 0, fmt.Errorf("%w: %d-%d", ErrInvalidRange, minPort, maxPort)
	}

	for _, offset := range rand.Perm(maxPort - minPort + 1) {
		port := minPort + offset
		if Available(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%w: %d-%d", ErrNoFreePort, minPort, maxPort)
}

// Available reports whether port can currently be bound on 127.0.0.1.
func Available(port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort(loopback, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// Addr formats the loopback address for port.
func Addr(port int) string {
	return net.JoinHostPort(loopback, strconv.Itoa(port))
}

package session

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	DefaultPort = 9999
)

// Endpoint is the address of the remote listener.
type Endpoint struct {
	Host string
	Port uint16
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.FormatUint(uint64(e.Port), 10))
}

func (e Endpoint) Validate() error {
	if e.Host == "" {
		return fmt.Errorf("the host is not set")
	}
	if e.Port == 0 {
		return fmt.Errorf("the port is not set")
	}
	return nil
}

// ParseEndpoint parses "host:port" or just "host" (then DefaultPort is used).
func ParseEndpoint(s string) (Endpoint, error) {
	host, portString, err := net.SplitHostPort(s)
	if err != nil {
		// no port
		host = strings.Trim(s, "[]")
		portString = strconv.FormatUint(DefaultPort, 10)
	}
	port, err := strconv.ParseUint(portString, 10, 16)
	if err != nil {
		return Endpoint{}, fmt.Errorf("unable to parse port '%s': %w", portString, err)
	}
	e := Endpoint{
		Host: host,
		Port: uint16(port),
	}
	if err := e.Validate(); err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint '%s': %w", s, err)
	}
	return e, nil
}

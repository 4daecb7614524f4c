package node

import (
	"fmt"
	"net"
	"strconv"
)

// DefaultPort is the IANA assigned Diameter port
const DefaultPort = 3868

// Peer is an upstream Diameter node
type Peer struct {
	Host      string
	Port      int
	Transport string // "tcp" or "sctp"
}

// NewPeer creates a TCP peer on the default port
func NewPeer(host string) Peer {
	return Peer{Host: host, Port: DefaultPort, Transport: "tcp"}
}

// ParsePeer parses "host" or "host:port"
func ParsePeer(s string) (Peer, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		if s == "" {
			return Peer{}, fmt.Errorf("empty peer address")
		}
		return NewPeer(s), nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Peer{}, fmt.Errorf("invalid port in peer address %q", s)
	}
	return Peer{Host: host, Port: port, Transport: "tcp"}, nil
}

// URI returns the peer as a Diameter URI
func (p Peer) URI() string {
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}
	uri := fmt.Sprintf("aaa://%s:%d", p.Host, port)
	if p.Transport == "sctp" {
		uri += ";transport=sctp"
	}
	return uri
}

func (p Peer) String() string {
	return p.URI()
}

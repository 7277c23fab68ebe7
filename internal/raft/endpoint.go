package raft

import (
	"fmt"
	"net"
	"strconv"
)

// Endpoint is a host and port pair.
type Endpoint struct {
	Host string
	Port int
}

// String returns the endpoint in host:port form.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// IsZero reports whether e is unset.
func (e Endpoint) IsZero() bool {
	return e.Host == "" && e.Port == 0
}

// ParseEndpoint parses a host:port string.
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid port %q", portStr)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// Peer describes one cluster member.
type Peer struct {
	ID     string
	Server Endpoint
	Client Endpoint
}

// Status is the role a node currently holds.
type Status int

// Node statuses.
const (
	StatusInactive Status = iota
	StatusFollower
	StatusCandidate
	StatusLeader
)

// String returns a human-readable status.
func (s Status) String() string {
	switch s {
	case StatusFollower:
		return "follower"
	case StatusCandidate:
		return "candidate"
	case StatusLeader:
		return "leader"
	default:
		return "inactive"
	}
}

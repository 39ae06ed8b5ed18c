// Package netx holds small network helpers shared by the server.
package netx

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc/peer"
)

var ErrInvalidAddress = errors.New("invalid listen address")

// PeerIP returns the remote IP of the gRPC call in ctx, or "" when the
// transport does not expose one.
func PeerIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	return HostOf(p.Addr)
}

// HostOf strips the port from addr.
func HostOf(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// ValidateListenAddress accepts "host:port" where host is empty or a
// literal IP. Host names are refused so the server never binds to whatever
// a resolver happens to answer.
func ValidateListenAddress(address string) error {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if port == "" {
		return fmt.Errorf("%w: missing port", ErrInvalidAddress)
	}
	if host != "" && net.ParseIP(host) == nil {
		return fmt.Errorf("%w: %q is not an IP", ErrInvalidAddress, host)
	}
	return nil
}

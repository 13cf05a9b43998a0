package ratelimit

import (
	"net"
	"strings"
)

// KeyForClient builds a limiter key for the caller's address. Ports are
// dropped so that one host shares a single budget.
func KeyForClient(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if host, _, errSplit := net.SplitHostPort(addr); errSplit == nil {
		addr = host
	}
	return "ip:" + addr
}

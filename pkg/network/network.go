package network

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// NewHTTPClient creates the client used for platform requests.
// When bindAddr is set, outbound connections originate from that IP or interface.
func NewHTTPClient(bindAddr string, timeout time.Duration) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if strings.TrimSpace(bindAddr) != "" {
		localAddr, err := resolveBindAddr(strings.TrimSpace(bindAddr))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve bind address '%s': %w", bindAddr, err)
		}
		dialer.LocalAddr = localAddr
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// resolveBindAddr takes a string that can be an IP address or an interface name
// and returns a resolvable *net.TCPAddr.
func resolveBindAddr(addrOrInterface string) (*net.TCPAddr, error) {
	ip := net.ParseIP(addrOrInterface)
	if ip != nil {
		return &net.TCPAddr{IP: ip}, nil
	}

	iface, err := net.InterfaceByName(addrOrInterface)
	if err != nil {
		return nil, fmt.Errorf("failed to find network interface '%s': %w", addrOrInterface, err)
	}

	addrs, err := iface.Addrs()
	if err != nil || len(addrs) == 0 {
		return nil, fmt.Errorf("interface '%s' has no usable addresses", addrOrInterface)
	}

	for _, addr := range addrs {
		var ip net.IP
		if ipNet, ok := addr.(*net.IPNet); ok {
			ip = ipNet.IP
		} else if ipAddr, ok := addr.(*net.IPAddr); ok {
			ip = ipAddr.IP
		}

		if ip != nil && ip.To4() != nil && !ip.IsLoopback() {
			return &net.TCPAddr{IP: ip}, nil
		}
	}

	return nil, fmt.Errorf("no usable IPv4 address found for interface '%s'", addrOrInterface)
}

package httpapi

import (
	"net"
	"os"
)

const fallbackIP = "127.0.0.1"

// ResolveBaseURL returns publicBaseURL when set, otherwise http://<server ip>:<listen port>.
func ResolveBaseURL(publicBaseURL, listenAddr string) string {
	if publicBaseURL != "" {
		return publicBaseURL
	}
	_, port, err := net.SplitHostPort(listenAddr)
	if err != nil || port == "" {
		port = "5000"
	}
	return "http://" + net.JoinHostPort(ServerIP(), port)
}

// ServerIP resolves the host name of the machine, preferring IPv4.
func ServerIP() string {
	hostname, err := os.Hostname()
	if err != nil {
		return fallbackIP
	}
	addrs, err := net.LookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		return fallbackIP
	}
	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
			return addr
		}
	}
	return addrs[0]
}

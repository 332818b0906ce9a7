package main

import "net"

// localOutboundIP resolves the machine's outbound-route IP via the classic
// connect-to-nowhere UDP trick: no packet is actually sent, but the kernel
// picks the interface/source address that would carry traffic to dst.
func localOutboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}

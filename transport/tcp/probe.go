package tcp

import (
	"bufio"
	"strings"
)

// Tunnel providers and load balancers poke this port with well-known
// protocols. Those payloads must never be mistaken for an identify or
// chat line.

var httpMethods = []string{
	"GET ", "POST ", "HEAD ", "PUT ", "DELETE ",
	"OPTIONS ", "PATCH ", "CONNECT ", "TRACE ", "PRI ",
}

func looksLikeProbe(line string) bool {
	for _, m := range httpMethods {
		if strings.HasPrefix(line, m) && strings.Contains(line, "HTTP/") {
			return true
		}
	}
	if strings.HasPrefix(line, "\x16\x03") { // TLS client hello
		return true
	}
	if strings.HasPrefix(line, "SSH-") {
		return true
	}
	return false
}

// drainRequestHead consumes the header block following an HTTP
// request line so Host/User-Agent lines are not relayed as chat.
func drainRequestHead(scanner *bufio.Scanner) {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			return
		}
	}
}

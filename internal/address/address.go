package address

import "strings"

const DefaultAddr = "0.0.0.0"

// Normalize completes an address consisting of a port only, e.g. ":8080",
// with the wildcard host.
func Normalize(addr string) string {
	if len(stripPort(addr)) == 0 {
		return DefaultAddr + addr
	}

	return addr
}

func stripPort(addr string) string {
	colon := strings.IndexByte(addr, ':')
	if colon != -1 {
		return addr[:colon]
	}

	return addr
}

package extract

import (
	"net"
	"net/url"
	"strings"
)

// normalizeLink lowercases scheme and host, drops default ports and the
// fragment so equivalent hrefs deduplicate.
func normalizeLink(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if host, port, err := net.SplitHostPort(n.Host); err == nil {
		if (n.Scheme == "http" && port == "80") || (n.Scheme == "https" && port == "443") {
			n.Host = host
			if strings.Contains(host, ":") {
				n.Host = "[" + host + "]"
			}
		}
	}
	n.Fragment = ""
	n.RawFragment = ""
	return n.String()
}

package store

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// PageKey returns the page identity for rawURL: origin, path and query,
// without the fragment. The origin is serialized the way a browser does:
// lower-case host, default http/https ports dropped.
func PageKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("store: page key: %w", err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("store: page key: %q is not absolute", rawURL)
	}
	if u.Opaque != "" || (u.Host == "" && u.Path == "") {
		return "", fmt.Errorf("store: page key: %q has no origin or path", rawURL)
	}

	path := u.EscapedPath()
	if path == "" && u.Host != "" {
		path = "/"
	}
	key := u.Scheme + "://" + origin(u) + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key, nil
}

func origin(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		return net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

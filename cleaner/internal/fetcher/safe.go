package fetcher

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

var (
	// ErrUnsafeScheme is returned for URLs that are not http or https.
	ErrUnsafeScheme = errors.New("fetcher: only http and https URLs can be fetched")

	// ErrTooLarge is returned when a body exceeds the read cap.
	ErrTooLarge = errors.New("fetcher: response too large")
)

// checkURL requires an absolute http(s) URL with a host.
func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("fetcher: invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ErrUnsafeScheme
	}
	if u.Hostname() == "" {
		return fmt.Errorf("fetcher: %q has no host", raw)
	}
	return nil
}

// readLimited reads all of r, failing with ErrTooLarge past max bytes.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, max)
	}
	return data, nil
}

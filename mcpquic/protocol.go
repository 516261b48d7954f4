// Package mcpquic carries MCP sessions over QUIC: one bidirectional stream
// per connection, opened with a 4-byte preamble and negotiated through a
// dedicated ALPN protocol.
package mcpquic

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	// ALPNProtocolMCP is the TLS ALPN identifier for MCP over QUIC.
	ALPNProtocolMCP = "mcp-quic-v1"
	// MagicBytesMCP opens every MCP stream.
	MagicBytesMCP = "MCP1"
	// MaxMessageSize caps a single JSON-RPC message.
	MaxMessageSize = 10 << 20

	DefaultIdleTimeout = 5 * time.Minute
	DefaultKeepAlive   = 30 * time.Second
)

// Application error codes.
const (
	ConnErrorNoError           quic.ApplicationErrorCode = 0x00
	ConnErrorUnsupportedALPN   quic.ApplicationErrorCode = 0x02
	ConnErrorProtocolViolation quic.ApplicationErrorCode = 0x03

	StreamErrorProtocolConfusion quic.StreamErrorCode = 0x10
)

var (
	ErrInvalidMagicBytes = errors.New("mcpquic: invalid magic bytes")
	ErrUnsupportedALPN   = errors.New("mcpquic: unsupported ALPN")
	ErrConnectionClosed  = errors.New("mcpquic: connection closed")
	ErrNotConnected      = errors.New("mcpquic: client not connected")
)

// ConnectionError records why a connection was refused.
type ConnectionError struct {
	RemoteAddr string
	Code       quic.ApplicationErrorCode
	Err        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mcpquic: %s: code 0x%02x: %v", e.RemoteAddr, uint64(e.Code), e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProductionQUICConfig returns the transport settings shared by client and
// server. 0-RTT stays off: replayed tool calls are not idempotent.
func ProductionQUICConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  DefaultIdleTimeout,
		KeepAlivePeriod: DefaultKeepAlive,
		Allow0RTT:       false,
	}
}

// SendMagicBytes writes the stream preamble.
func SendMagicBytes(w io.Writer) error {
	if _, err := io.WriteString(w, MagicBytesMCP); err != nil {
		return fmt.Errorf("mcpquic: send magic: %w", err)
	}
	return nil
}

// ValidateMagicBytes reads and checks the stream preamble.
func ValidateMagicBytes(r io.Reader) error {
	buf := make([]byte, len(MagicBytesMCP))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMagicBytes, err)
	}
	if string(buf) != MagicBytesMCP {
		return fmt.Errorf("%w: got %q", ErrInvalidMagicBytes, buf)
	}
	return nil
}

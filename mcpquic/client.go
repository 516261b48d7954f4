package mcpquic

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/quic-go/quic-go"
)

// ErrToolFailed wraps the message of a tool call the server answered with
// an error result.
var ErrToolFailed = errors.New("mcpquic: tool failed")

// Client is one MCP session over a QUIC connection. It is not safe for
// concurrent Connect and Close.
type Client struct {
	addr        string
	tlsCfg      *tls.Config
	impl        *mcp.Implementation
	dialTimeout time.Duration

	conn    *quic.Conn
	stream  *quic.Stream
	session *mcp.ClientSession
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithImplementation names the client in the MCP handshake.
func WithImplementation(name, version string) ClientOption {
	return func(c *Client) { c.impl = &mcp.Implementation{Name: name, Version: version} }
}

// WithDialTimeout bounds dialing plus the MCP handshake. Default 10s.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialTimeout = d }
}

// NewClient creates a client for addr. A nil tlsCfg verifies the server.
func NewClient(addr string, tlsCfg *tls.Config, opts ...ClientOption) *Client {
	if tlsCfg == nil {
		tlsCfg = ClientTLSConfig(false)
	}
	c := &Client{
		addr:        addr,
		tlsCfg:      tlsCfg,
		impl:        &mcp.Implementation{Name: "purgedom-ctl", Version: "1.0.0"},
		dialTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect dials, opens the session stream with its preamble and runs the
// MCP handshake. On failure nothing stays open.
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	conn, err := quic.DialAddr(ctx, c.addr, c.tlsCfg, ProductionQUICConfig())
	if err != nil {
		return &ConnectionError{RemoteAddr: c.addr, Err: err}
	}
	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNProtocolMCP {
		conn.CloseWithError(ConnErrorUnsupportedALPN, "unsupported ALPN")
		return &ConnectionError{RemoteAddr: c.addr, Code: ConnErrorUnsupportedALPN,
			Err: fmt.Errorf("%w: %q", ErrUnsupportedALPN, alpn)}
	}
	c.conn = conn

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		c.closeTransport()
		return fmt.Errorf("mcpquic: open stream: %w", err)
	}
	c.stream = stream
	if err := SendMagicBytes(stream); err != nil {
		c.closeTransport()
		return err
	}

	session, err := mcp.NewClient(c.impl, nil).Connect(ctx, &mcp.IOTransport{
		Reader: io.NopCloser(stream),
		Writer: streamWriteCloser{stream},
	}, nil)
	if err != nil {
		c.closeTransport()
		return fmt.Errorf("mcpquic: handshake: %w", err)
	}
	c.session = session
	return nil
}

// ListTools lists the server's tools.
func (c *Client) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	if c.session == nil {
		return nil, ErrNotConnected
	}
	return c.session.ListTools(ctx, nil)
}

// CallTool invokes a tool and returns its raw result.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if c.session == nil {
		return nil, ErrNotConnected
	}
	if args == nil {
		args = map[string]any{}
	}
	return c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
}

// Call invokes a tool whose reply is JSON text and decodes it into out. An
// error result comes back as ErrToolFailed carrying the server's message.
func (c *Client) Call(ctx context.Context, name string, args map[string]any, out any) error {
	res, err := c.CallTool(ctx, name, args)
	if err != nil {
		return fmt.Errorf("mcpquic: call %s: %w", name, err)
	}
	text := resultText(res)
	if res.IsError {
		return fmt.Errorf("%w: %s: %s", ErrToolFailed, name, text)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("mcpquic: decode %s reply: %w", name, err)
	}
	return nil
}

func resultText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// Close ends the session and the connection.
func (c *Client) Close() error {
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	c.closeTransport()
	return nil
}

func (c *Client) closeTransport() {
	if c.stream != nil {
		c.stream.Close()
		c.stream = nil
	}
	if c.conn != nil {
		c.conn.CloseWithError(ConnErrorNoError, "client closing")
		c.conn = nil
	}
}

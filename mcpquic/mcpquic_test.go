package mcpquic

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestMagicBytes_Roundtrip(t *testing.T) {
	var buf bytes.Buffer
	if err := SendMagicBytes(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != MagicBytesMCP {
		t.Fatalf("magic = %q", buf.String())
	}
	if err := ValidateMagicBytes(&buf); err != nil {
		t.Fatal(err)
	}
}

func TestValidateMagicBytes_Invalid(t *testing.T) {
	for _, in := range []string{"HTTP", "MC", ""} {
		if err := ValidateMagicBytes(strings.NewReader(in)); !errors.Is(err, ErrInvalidMagicBytes) {
			t.Errorf("ValidateMagicBytes(%q) = %v", in, err)
		}
	}
}

func TestProductionQUICConfig(t *testing.T) {
	cfg := ProductionQUICConfig()
	if cfg.MaxIdleTimeout != DefaultIdleTimeout || cfg.KeepAlivePeriod != DefaultKeepAlive || cfg.Allow0RTT {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestTLSConfigs(t *testing.T) {
	srv, err := SelfSignedTLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	if len(srv.Certificates) != 1 || srv.MinVersion != tls.VersionTLS13 || srv.NextProtos[0] != ALPNProtocolMCP {
		t.Fatalf("server config = %+v", srv)
	}
	if !ClientTLSConfig(true).InsecureSkipVerify || ClientTLSConfig(false).InsecureSkipVerify {
		t.Fatal("client insecure flag not honoured")
	}
	if c := NewClient("localhost:1", nil); c.tlsCfg.InsecureSkipVerify {
		t.Fatal("default client must verify the server")
	}
}

func TestConnectionError(t *testing.T) {
	inner := errors.New("timeout")
	ce := &ConnectionError{RemoteAddr: "127.0.0.1:8443", Code: ConnErrorProtocolViolation, Err: inner}
	if msg := ce.Error(); !strings.Contains(msg, "127.0.0.1:8443") || !strings.Contains(msg, "0x03") {
		t.Fatalf("message = %s", msg)
	}
	if !errors.Is(ce, inner) {
		t.Fatal("Unwrap lost the inner error")
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient("localhost:1234", nil)
	ctx := context.Background()
	if _, err := c.ListTools(ctx); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("ListTools: %v", err)
	}
	if _, err := c.CallTool(ctx, "x", nil); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("CallTool: %v", err)
	}
}

func TestLoopback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := mcp.NewServer(&mcp.Implementation{Name: "loopback", Version: "0.1.0"}, nil)
	srv.AddTool(&mcp.Tool{
		Name:        "echo",
		Description: "echo",
		InputSchema: map[string]any{"type": "object"},
	}, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(req.Params.Arguments)}}}, nil
	})
	srv.AddTool(&mcp.Tool{
		Name:        "fail",
		Description: "always fails",
		InputSchema: map[string]any{"type": "object"},
	}, func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var res mcp.CallToolResult
		res.SetError(errors.New("page gone"))
		return &res, nil
	})

	tlsCfg, err := SelfSignedTLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	l, err := NewListener("127.0.0.1:0", tlsCfg, srv, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go l.Serve(ctx)

	c := NewClient(l.Addr().String(), ClientTLSConfig(true))
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	res, err := c.CallTool(ctx, "echo", map[string]any{"page_id": "news"})
	if err != nil {
		t.Fatal(err)
	}
	if text := res.Content[0].(*mcp.TextContent).Text; !strings.Contains(text, `"news"`) {
		t.Fatalf("echo = %s", text)
	}

	var args struct {
		PageID  string `json:"page_id"`
		Enabled bool   `json:"enabled"`
	}
	if err := c.Call(ctx, "echo", map[string]any{"page_id": "sport", "enabled": true}, &args); err != nil {
		t.Fatal(err)
	}
	if args.PageID != "sport" || !args.Enabled {
		t.Errorf("decoded = %+v", args)
	}

	err = c.Call(ctx, "fail", nil, nil)
	if !errors.Is(err, ErrToolFailed) || !strings.Contains(err.Error(), "page gone") {
		t.Errorf("failing tool = %v", err)
	}
}

func TestClient_DialFailure(t *testing.T) {
	c := NewClient("127.0.0.1:1", ClientTLSConfig(true), WithDialTimeout(200*time.Millisecond))
	err := c.Connect(context.Background())
	var ce *ConnectionError
	if !errors.As(err, &ce) || ce.RemoteAddr != "127.0.0.1:1" {
		t.Fatalf("Connect = %v", err)
	}
	if _, err := c.ListTools(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ListTools after failed dial = %v", err)
	}
}

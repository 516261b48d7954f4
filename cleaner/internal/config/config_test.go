package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`pages: [{url: "https://a.example/"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Browser.Display != "window" || cfg.Browser.XvfbDisplay != ":99" {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if cfg.Store.Path != "purgedom.db" || cfg.Listen != "127.0.0.1:8087" {
		t.Errorf("store=%q listen=%q", cfg.Store.Path, cfg.Listen)
	}
	if cfg.FrameInterval != 16*time.Millisecond {
		t.Errorf("frame interval = %v", cfg.FrameInterval)
	}
	if cfg.MCP.HTTPPath != "/mcp" || cfg.MCP.QUICAddr != "" {
		t.Errorf("mcp = %+v", cfg.MCP)
	}
	if cfg.Pages[0].ID != "page-1" {
		t.Errorf("page id = %q", cfg.Pages[0].ID)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purgedom.yaml")
	data := `
browser:
  display: headless
  resource_blocking: [images, fonts]
store:
  path: /tmp/x.db
listen: 127.0.0.1:9000
frame_interval: 50ms
pages:
  - id: news
    url: https://news.example/
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Browser.Display != "headless" || len(cfg.Browser.ResourceBlocking) != 2 {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if cfg.FrameInterval != 50*time.Millisecond || cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Pages) != 1 || cfg.Pages[0].ID != "news" {
		t.Errorf("pages = %+v", cfg.Pages)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, data := range []string{
		`pages: [{id: a}]`,
		`pages: [{id: a, url: "https://x/"}, {id: a, url: "https://y/"}]`,
		`browser: [`,
		`mcp: {tls_cert: /tmp/c.pem}`,
		`pages: [{id: "a/b", url: "https://x/"}]`,
	} {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("Parse(%q) accepted", data)
		}
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

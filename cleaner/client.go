package cleaner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a running purgedom over its HTTP command channel, the way
// a toolbar popup talks to a tab. Any transport failure, missing reply or
// error status reads as ErrUnavailable.
type Client struct {
	base string
	http *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 5 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Send posts cmd to a page. ok is false when the page ignored the command.
func (c *Client) Send(ctx context.Context, pageID string, cmd Command) (state ModeState, ok bool, err error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return ModeState{}, false, fmt.Errorf("cleaner: client: %w", err)
	}
	u := c.base + "/pages/" + url.PathEscape(pageID) + "/commands"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return ModeState{}, false, fmt.Errorf("cleaner: client: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ModeState{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return ModeState{}, false, nil
	default:
		io.Copy(io.Discard, resp.Body)
		return ModeState{}, false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return ModeState{}, false, fmt.Errorf("%w: bad reply: %v", ErrUnavailable, err)
	}
	return state, true, nil
}

// Modes reads a page's mode state.
func (c *Client) Modes(ctx context.Context, pageID string) (ModeState, error) {
	return c.expect(ctx, pageID, Command{Type: CmdGetModes})
}

// ToggleClean toggles clean mode and re-reads the resulting modes.
func (c *Client) ToggleClean(ctx context.Context, pageID string) (ModeState, error) {
	return c.toggle(ctx, pageID, CmdToggleClean)
}

// ToggleUndo toggles undo mode and re-reads the resulting modes.
func (c *Client) ToggleUndo(ctx context.Context, pageID string) (ModeState, error) {
	return c.toggle(ctx, pageID, CmdToggleUndo)
}

// SetClean turns clean mode on or off.
func (c *Client) SetClean(ctx context.Context, pageID string, on bool) (ModeState, error) {
	return c.expect(ctx, pageID, Command{Type: CmdSetClean, Enabled: on})
}

// SetUndo turns undo mode on or off.
func (c *Client) SetUndo(ctx context.Context, pageID string, on bool) (ModeState, error) {
	return c.expect(ctx, pageID, Command{Type: CmdSetUndo, Enabled: on})
}

// RestoreAll restores every hidden element on a page.
func (c *Client) RestoreAll(ctx context.Context, pageID string) (ModeState, error) {
	return c.expect(ctx, pageID, Command{Type: CmdRestoreAll})
}

// Pages lists the server's open pages.
func (c *Client) Pages(ctx context.Context) ([]PageInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/pages", nil)
	if err != nil {
		return nil, fmt.Errorf("cleaner: client: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	var pages []PageInfo
	if err := json.NewDecoder(resp.Body).Decode(&pages); err != nil {
		return nil, fmt.Errorf("%w: bad reply: %v", ErrUnavailable, err)
	}
	return pages, nil
}

func (c *Client) toggle(ctx context.Context, pageID, name string) (ModeState, error) {
	if _, err := c.expect(ctx, pageID, Command{Type: name}); err != nil {
		return ModeState{}, err
	}
	return c.Modes(ctx, pageID)
}

// expect sends a command that must be answered.
func (c *Client) expect(ctx context.Context, pageID string, cmd Command) (ModeState, error) {
	state, ok, err := c.Send(ctx, pageID, cmd)
	if err != nil {
		return ModeState{}, err
	}
	if !ok {
		return ModeState{}, fmt.Errorf("%w: no reply to %s", ErrUnavailable, cmd.Type)
	}
	return state, nil
}

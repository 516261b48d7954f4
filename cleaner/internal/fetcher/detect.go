package fetcher

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// shellMarkers are empty mount points left by client-side frameworks.
var shellMarkers = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
	"<noscript>you need to enable javascript",
	"<noscript>enable javascript",
}

// IsSufficient reports whether body carries enough visible text to be
// cleaned without running its scripts.
func IsSufficient(body []byte) bool {
	if len(body) < 256 {
		return false
	}
	lower := bytes.ToLower(body)
	for _, m := range shellMarkers {
		if bytes.Contains(lower, []byte(m)) {
			return false
		}
	}
	text := visibleText(body)
	if text < 200 {
		return false
	}
	// Under 10% text is a script shell.
	return float64(text)/float64(len(body)) >= 0.10
}

// visibleText counts non-blank text bytes outside script and style.
func visibleText(body []byte) int {
	z := html.NewTokenizer(bytes.NewReader(body))
	skip := 0
	n := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return n
		case html.StartTagToken:
			if name, _ := z.TagName(); hidden(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); hidden(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				n += len(strings.TrimSpace(string(z.Text())))
			}
		}
	}
}

func hidden(tag []byte) bool {
	switch string(tag) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

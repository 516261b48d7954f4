package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceAliases maps config names to CDP resource types.
var resourceAliases = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
	"scripts":     proto.NetworkResourceTypeScript,
	"xhr":         proto.NetworkResourceTypeXHR,
	"fetch":       proto.NetworkResourceTypeFetch,
}

// resourceFilter is the set of resource types a tab refuses to load.
type resourceFilter map[proto.NetworkResourceType]bool

func newResourceFilter(names []string) resourceFilter {
	f := make(resourceFilter, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if t, ok := resourceAliases[n]; ok {
			f[t] = true
			continue
		}
		if n != "" {
			f[proto.NetworkResourceType(strings.ToUpper(n[:1])+n[1:])] = true
		}
	}
	return f
}

func (f resourceFilter) blocks(t proto.NetworkResourceType) bool {
	return f[t]
}

// blockResources intercepts requests on page and fails the filtered types.
// The returned router must be stopped when the tab closes.
func blockResources(page *rod.Page, f resourceFilter) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if f.blocks(h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

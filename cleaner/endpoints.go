package cleaner

import (
	"context"
	"fmt"

	"github.com/hazyhaar/purgedom/kit"
)

// commandRequest addresses a command to a page.
type commandRequest struct {
	PageID string `json:"page_id"`
	Command
}

// commandEndpoint dispatches a commandRequest. It returns nil, nil for an
// unrecognised command.
func commandEndpoint(ctrl Controller) kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r, ok := req.(*commandRequest)
		if !ok {
			return nil, fmt.Errorf("cleaner: unexpected request %T", req)
		}
		state, handled, err := ctrl.Dispatch(kit.WithPageID(ctx, r.PageID), r.PageID, r.Command)
		if err != nil {
			return nil, err
		}
		if !handled {
			return nil, nil
		}
		return &state, nil
	}
}

func pagesEndpoint(ctrl Controller) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		return ctrl.Pages(ctx), nil
	}
}

package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// streamSnapshots renders a change subscription as server-sent events.
// Every event carries the full current set, replacing the previous one,
// so a consumer rebuilds its view from the latest event alone. Runs
// until the client disconnects or the subscription is released.
func streamSnapshots[T any](ctx echo.Context, snaps <-chan []T) error {
	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)

	for {
		select {
		case <-ctx.Request().Context().Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			data, err := json.Marshal(snap)
			if err != nil {
				return errors.Wrap(err, "marshaling snapshot")
			}
			if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
				return nil // client gone
			}
			resp.Flush()
		}
	}
}

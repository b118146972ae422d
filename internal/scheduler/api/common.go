package api

import (
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
)

// userIDFromRequest resolves the acting user. Auth is out of scope; the UI
// passes user_id explicitly and a single-user install omits it.
func userIDFromRequest(c *app.RequestContext) uint {
	raw := c.Query("user_id")
	if raw == "" {
		return 1
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 1
	}
	return uint(id)
}

func idParam(c *app.RequestContext) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

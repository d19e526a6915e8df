package handlers

import (
	"net/http"
	"strconv"

	"notifier/internal/types"
)

// listParams extracts limit/offset query parameters. Invalid values fall
// back to the defaults applied by ListParams.Normalize.
func listParams(r *http.Request) types.ListParams {
	var p types.ListParams
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Offset = n
		}
	}
	return p
}

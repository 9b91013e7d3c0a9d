package httpapi

import (
	"net/http"
	"strconv"

	"github.com/titan-aas/titan-aas/internal/projection"
	"github.com/titan-aas/titan-aas/internal/storage"
)

// parseModifiers reads the IDTA content/level/extent query modifiers
// from r, defaulting any unset modifier to its IDTA default.
func parseModifiers(r *http.Request) projection.Modifiers {
	mods := projection.DefaultModifiers()
	q := r.URL.Query()
	if v := q.Get("content"); v != "" {
		mods.Content = v
	}
	if v := q.Get("level"); v != "" {
		mods.Level = v
	}
	if v := q.Get("extent"); v != "" {
		mods.Extent = v
	}
	return mods
}

// parseListOptions reads cursor/limit/assetIds/semanticId into a
// storage.ListOptions, clamping limit to the repository contract's
// bounds.
func parseListOptions(r *http.Request) storage.ListOptions {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	return storage.ListOptions{
		Cursor:        q.Get("cursor"),
		Limit:         storage.NormalizeLimit(limit),
		GlobalAssetID: q.Get("assetIds"),
		SemanticID:    q.Get("semanticId"),
	}
}

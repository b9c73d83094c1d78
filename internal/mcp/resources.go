package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/claude/fitlog/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) today(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)
	now := time.Now()

	view, err := h.ds.Today(ctx, uid, now)
	if err != nil {
		return nil, err
	}

	recent, err := h.ds.QuerySessions(ctx, uid, storage.SessionQuery{Start: now.AddDate(0, 0, -7), End: now})
	if err != nil {
		h.log.Warn("today: recent sessions query failed", "error", err)
	}

	return jsonContents(req.Params.URI, map[string]any{
		"today":           view,
		"recent_sessions": recent,
	})
}

func (h *handlers) stats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := h.ds.GetDataStats(ctx, UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, stats)
}

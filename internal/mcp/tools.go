package mcp

import (
	"context"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// timeRange parses start/end, defaulting to the last days days.
func timeRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// --- Tool definitions ---

var toolGetToday = mcp.NewTool("get_today",
	mcp.WithDescription("What is planned for today: a strength template, a cardio target, a rest day, or a strength day without a template."),
	mcp.WithString("timezone", mcp.Description("IANA time zone used to pick the weekday (e.g. 'Europe/Berlin'). Defaults to the server's local zone.")),
)

var toolGetSchedule = mcp.NewTool("get_schedule",
	mcp.WithDescription("The weekly schedule, one entry per weekday starting with Sunday (day 0)."),
)

var toolListTemplates = mcp.NewTool("list_templates",
	mcp.WithDescription("All workout templates with their exercises, prescribed sets and last achieved loads."),
)

var toolGetSessions = mcp.NewTool("get_sessions",
	mcp.WithDescription("Saved workout sessions, newest first. Strength sessions include per-set results, cardio sessions distance and pace."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("type", mcp.Description("Only sessions of this type."), mcp.Enum("strength", "cardio")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions. Defaults to 100.")),
)

var toolGetTrainingReport = mcp.NewTool("get_training_report",
	mcp.WithDescription("Training volume per period and session type (count, duration, average intensity, completion ratio, cardio distance) and the distribution of intensity ratings."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to 'week'."), mcp.Enum("day", "week", "month")),
)

var toolGetMeasurements = mcp.NewTool("get_measurements",
	mcp.WithDescription("Body measurements such as weight, body fat and circumferences, newest first."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

// --- Tool handlers ---

func (h *handlers) getToday(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := time.Now()
	if tz := req.GetString("timezone", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return mcp.NewToolResultError("invalid timezone: " + err.Error()), nil
		}
		now = now.In(loc)
	}

	view, err := h.ds.Today(ctx, UserIDFromContext(ctx), now)
	if err != nil {
		h.log.Error("mcp get_today", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(view)
}

func (h *handlers) getSchedule(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days, err := h.ds.GetSchedule(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_schedule", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(days)
}

func (h *handlers) listTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := h.ds.ListTemplates(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp list_templates", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(templates)
}

func (h *handlers) getSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 30)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	q := storage.SessionQuery{Start: start, End: end, Limit: req.GetInt("limit", 100)}
	switch t := models.SessionType(req.GetString("type", "")); t {
	case "", models.SessionTypeStrength, models.SessionTypeCardio:
		q.Type = t
	default:
		return mcp.NewToolResultError("type must be strength or cardio"), nil
	}

	sessions, err := h.ds.QuerySessions(ctx, UserIDFromContext(ctx), q)
	if err != nil {
		h.log.Error("mcp get_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions)
}

func (h *handlers) getTrainingReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 90)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	bucket := req.GetString("bucket", "week")
	uid := UserIDFromContext(ctx)

	summary, err := h.ds.GetTrainingSummary(ctx, uid, start, end, bucket)
	if err != nil {
		h.log.Error("mcp get_training_report summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	intensity, err := h.ds.GetTrainingIntensity(ctx, uid, start, end)
	if err != nil {
		h.log.Error("mcp get_training_report intensity", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	return jsonResult(map[string]any{
		"periods":   summary,
		"intensity": intensity,
	})
}

func (h *handlers) getMeasurements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 90)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	list, err := h.ds.QueryMeasurements(ctx, UserIDFromContext(ctx), start, end, 500)
	if err != nil {
		h.log.Error("mcp get_measurements", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(list)
}

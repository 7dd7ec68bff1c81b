package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// trafficLoggingMiddleware logs every message at debug level. Tool calls also
// carry the tool name, and their responses whether the tool failed.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			params := safeParams(req)
			attrs := []any{
				"direction", direction,
				"method", method,
				"session_id", safeSessionID(req),
				"request_id", getRequestID(ctx),
			}
			if tool := toolName(params); tool != "" {
				attrs = append(attrs, "tool", tool)
			}
			logger.Debug("mcp traffic", append(attrs, "stage", "request", "params", formatPayload(params))...)

			result, err := next(ctx, method, req)
			if strings.HasPrefix(method, "notifications/") {
				return result, err
			}

			attrs = append(attrs, "stage", "response", "result", formatPayload(result))
			if res, ok := result.(*sdkmcp.CallToolResult); ok && res != nil {
				attrs = append(attrs, "tool_error", res.IsError)
			}
			if err != nil {
				attrs = append(attrs, "error", err)
			}
			logger.Debug("mcp traffic", attrs...)
			return result, err
		}
	}
}

func toolName(params any) string {
	switch p := params.(type) {
	case *sdkmcp.CallToolParamsRaw:
		if p != nil {
			return p.Name
		}
	case *sdkmcp.CallToolParams:
		if p != nil {
			return p.Name
		}
	}
	return ""
}

func safeSessionID(req sdkmcp.Request) string {
	if req == nil {
		return ""
	}
	defer func() { recover() }()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	defer func() { recover() }()
	return session.ID()
}

func safeParams(req sdkmcp.Request) any {
	if req == nil {
		return nil
	}
	defer func() { recover() }()
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}

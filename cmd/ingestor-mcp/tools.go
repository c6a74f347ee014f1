package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/ingestor/models"
)

func handleCapture(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := c.run(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)), nil
		}
		if resp.Report == nil {
			return mcp.NewToolResultError("capture returned no report"), nil
		}
		text := formatReport(resp.Report)
		if !resp.Success {
			return mcp.NewToolResultError(text), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func handleStatus(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		h, err := c.health(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Status: %s (up %s, version %s)\n", h.Status, h.Uptime, h.Version)
		fmt.Fprintf(&b, "Backend: %s\n", h.SinkURL)
		if nav := h.Navigation; nav != nil {
			fmt.Fprintf(&b, "Watching: %s\n", nav.Address)
			if nav.Phase == models.NavPending {
				fmt.Fprintf(&b, "Capture scheduled at %s\n", nav.ScheduledAt.Format("15:04:05"))
			}
			fmt.Fprintf(&b, "Captures so far: %d\n", nav.Runs)
		}
		if h.LastRun != nil {
			b.WriteString("\nLast capture:\n")
			b.WriteString(formatReport(h.LastRun))
		}
		return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
	}
}

func handleStrategies(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := c.strategies(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(strings.Join(resp.Strategies, " → ")), nil
	}
}

func formatReport(r *models.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", r.Title)
	fmt.Fprintf(&b, "Source: %s\n", r.Address)
	strategy := r.Strategy
	if r.Fallback {
		strategy += " (fallback)"
	}
	fmt.Fprintf(&b, "Strategy: %s\n", strategy)
	if r.Type != "" {
		fmt.Fprintf(&b, "Type: %s\n", r.Type)
	}
	switch {
	case r.Discarded:
		b.WriteString("Outcome: discarded, a newer capture started\n")
	case r.Outcome != "":
		fmt.Fprintf(&b, "Outcome: %s\n", r.Outcome)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	}
	return b.String()
}

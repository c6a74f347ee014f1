package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("INGESTOR_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8790"
	}
	c := newClient(apiURL, os.Getenv("INGESTOR_API_KEY"))

	s := server.NewMCPServer(
		"ingestor",
		"0.2.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("capture_current_page",
		mcp.WithDescription("Capture the page currently open in the user's watched browser tab and archive it in the knowledge base. Returns the title, the extraction strategy used and whether the backend accepted it."),
	), handleCapture(c))

	s.AddTool(mcp.NewTool("ingestor_status",
		mcp.WithDescription("Report the ingestor's state: the address being watched, whether a capture is pending and the result of the last capture."),
	), handleStatus(c))

	s.AddTool(mcp.NewTool("list_strategies",
		mcp.WithDescription("List the extraction strategies in the order they are tried."),
	), handleStrategies(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// Command mock-scanner runs a small MCP server exposing security-scanner
// tools, for exercising the argus tools command and the MCP client
// without a real scanner deployment. Provides "scan_secrets" and
// "list_rules" tools over streamable HTTP on /mcp.
//
// Configuration:
//
//	MOCK_SCANNER_PORT - Listen port (default: 8080)
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// secretRules are the patterns scan_secrets flags. Deliberately crude;
// the point is deterministic output, not detection quality.
var secretRules = []struct {
	Name    string
	Pattern string
}{
	{"aws-access-key", "AKIA"},
	{"private-key-block", "-----BEGIN"},
	{"hardcoded-password", "password="},
	{"bearer-token", "Bearer "},
}

func main() {
	port := os.Getenv("MOCK_SCANNER_PORT")
	if port == "" {
		port = "8080"
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: "argus-mock-scanner", Version: "v1.0.0"},
		nil,
	)

	type ScanInput struct {
		Content string `json:"content" jsonschema_description:"The file content to scan for secrets"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "scan_secrets",
		Description: "Scans the given content for hardcoded credentials and keys",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input ScanInput) (*mcp.CallToolResult, struct{}, error) {
		var findings []string
		for _, rule := range secretRules {
			for i, line := range strings.Split(input.Content, "\n") {
				if strings.Contains(line, rule.Pattern) {
					findings = append(findings, fmt.Sprintf("line %d: %s", i+1, rule.Name))
				}
			}
		}
		text := "No secrets found."
		if len(findings) > 0 {
			text = fmt.Sprintf("%d finding(s):\n%s", len(findings), strings.Join(findings, "\n"))
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, struct{}{}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_rules",
		Description: "Lists the secret-detection rules this scanner applies",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, struct{}, error) {
		names := make([]string, len(secretRules))
		for i, rule := range secretRules {
			names[i] = rule.Name
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: strings.Join(names, "\n")}},
		}, struct{}{}, nil
	})

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)

	httpMux := http.NewServeMux()
	httpMux.Handle("/mcp", handler)
	httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	log.Printf("mock scanner starting on :%s", port)
	if err := http.ListenAndServe(":"+port, httpMux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/repoforge/repoforge/internal/adapters/outbound/detector"
	"github.com/repoforge/repoforge/internal/adapters/outbound/gitfs"
	"github.com/repoforge/repoforge/internal/adapters/outbound/registry"
	"github.com/repoforge/repoforge/internal/adapters/outbound/scanner"
	"github.com/repoforge/repoforge/internal/adapters/outbound/secrets"
	"github.com/repoforge/repoforge/internal/application"
)

// registerTools registers the read-only repoforge tools on the server.
func registerTools(s *server.MCPServer, repoPath string) {
	s.AddTool(
		mcplib.NewTool("repoforge_detect",
			mcplib.WithDescription("Detect the repository's implementation ecosystems with confidence scores"),
		),
		handleDetect(repoPath),
	)

	s.AddTool(
		mcplib.NewTool("repoforge_audit",
			mcplib.WithDescription("Audit the repository against the professionalization baseline and return the finding set as JSON"),
		),
		handleAudit(repoPath),
	)

	s.AddTool(
		mcplib.NewTool("repoforge_plan",
			mcplib.WithDescription("Build the transformation plan for the repository without executing anything"),
		),
		handlePlan(repoPath),
	)
}

// newServices wires the read-side services for the repository.
func newServices(repoPath string) (*application.AuditService, *application.PlanService, error) {
	fs, err := gitfs.Open(repoPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening repository: %w", err)
	}
	reg, err := registry.Load(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("loading capability registry: %w", err)
	}
	secretScanner, err := secrets.New()
	if err != nil {
		return nil, nil, fmt.Errorf("building secret scanner: %w", err)
	}
	detectSvc := application.NewDetectService(scanner.New(), detector.New())
	auditSvc := application.NewAuditService(detectSvc, reg, fs, secretScanner, zap.NewNop())
	return auditSvc, application.NewPlanService(auditSvc), nil
}

func handleDetect(repoPath string) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		svc := application.NewDetectService(scanner.New(), detector.New())
		ecosystems, _, err := svc.Detect(repoPath)
		if err != nil {
			return errorResult(fmt.Sprintf("detect failed: %v", err)), nil
		}
		return jsonResult(ecosystems)
	}
}

func handleAudit(repoPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		auditSvc, _, err := newServices(repoPath)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		result, err := auditSvc.Audit(ctx, repoPath)
		if err != nil {
			return errorResult(fmt.Sprintf("audit failed: %v", err)), nil
		}
		return jsonResult(result)
	}
}

func handlePlan(repoPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		_, planSvc, err := newServices(repoPath)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		p, _, err := planSvc.Plan(ctx, repoPath)
		if err != nil {
			return errorResult(fmt.Sprintf("planning failed: %v", err)), nil
		}
		return jsonResult(p)
	}
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/stepmesh"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ManifestURI is the resource holding the manifest of the last export.
const ManifestURI = "stepmesh://manifest"

// Pipeline defines what the MCP server needs from a stepmesh.Pipeline.
type Pipeline interface {
	Convert(ctx context.Context, req stepmesh.ConvertRequest) (*stepmesh.ConvertReport, error)
	Export(ctx context.Context, req stepmesh.ExportRequest) (*stepmesh.ExportReport, error)
	Inspect(ctx context.Context, input string) (*stepmesh.InspectReport, error)
	Store() ports.ManifestStore
}

// Defaults are the server-side settings of tool runs; Input is ignored.
type Defaults struct {
	Convert stepmesh.ConvertRequest
	Export  stepmesh.ExportRequest
}

// RunArgs are the arguments of the convert_step and export_parts tools.
// Zero deflections keep the server defaults.
type RunArgs struct {
	Input             string  `json:"input"`
	LinearDeflection  float64 `json:"linear_deflection,omitempty"`
	AngularDeflection float64 `json:"angular_deflection,omitempty"`
	Relative          bool    `json:"relative,omitempty"`
}

func (a RunArgs) tolerance(def domain.Tolerance) domain.Tolerance {
	t := def
	if a.LinearDeflection > 0 {
		t.LinearDeflection = a.LinearDeflection
	}
	if a.AngularDeflection > 0 {
		t.AngularDeflection = a.AngularDeflection
	}
	if a.Relative {
		t.Relative = true
	}
	return t
}

// InspectArgs are the arguments of the inspect_step tool.
type InspectArgs struct {
	Input string `json:"input"`
}

// Server wraps a Pipeline and exposes it as an MCP Server.
type Server struct {
	pipeline  Pipeline
	defaults  Defaults
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(pipeline Pipeline, defaults Defaults) *Server {
	s := &Server{
		pipeline:  pipeline,
		defaults:  defaults,
		mcpServer: server.NewMCPServer("stepmesh-mcp", strings.TrimSpace(stepmesh.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	deflections := []mcp.ToolOption{
		mcp.WithNumber("linear_deflection", mcp.Description("Maximum distance between mesh and surface (optional)")),
		mcp.WithNumber("angular_deflection", mcp.Description("Maximum angle in radians between adjacent facets (optional)")),
		mcp.WithBoolean("relative", mcp.Description("Scale linear_deflection by each shape's bounding box diagonal")),
	}

	// TOOL: inspect_step
	s.mcpServer.AddTool(mcp.NewTool("inspect_step",
		mcp.WithDescription("List the objects of a STEP file with their bounding boxes. Nothing is written."),
		mcp.WithString("input", mcp.Required(), mcp.Description("Path of the STEP file")),
		mcp.WithOutputSchema[stepmesh.InspectReport](),
	), mcp.NewStructuredToolHandler(s.handleInspect))

	// TOOL: convert_step
	convertOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Tessellate every object of a STEP file into one combined STL file."),
		mcp.WithString("input", mcp.Required(), mcp.Description("Path of the STEP file")),
		mcp.WithOutputSchema[stepmesh.ConvertReport](),
	}, deflections...)
	s.mcpServer.AddTool(mcp.NewTool("convert_step", convertOpts...), mcp.NewStructuredToolHandler(s.handleConvert))

	// TOOL: export_parts
	exportOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Write one STL file per part of a STEP file and save the part manifest."),
		mcp.WithString("input", mcp.Required(), mcp.Description("Path of the STEP file")),
		mcp.WithOutputSchema[stepmesh.ExportReport](),
	}, deflections...)
	s.mcpServer.AddTool(mcp.NewTool("export_parts", exportOpts...), mcp.NewStructuredToolHandler(s.handleExport))
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest, args InspectArgs) (*stepmesh.InspectReport, error) {
	if args.Input == "" {
		return nil, errors.New("input is required")
	}
	report, err := s.pipeline.Inspect(ctx, args.Input)
	if err != nil {
		return nil, fmt.Errorf("inspect failed: %w", err)
	}
	return report, nil
}

// handleConvert returns the report even when no mesh was produced; the empty
// object list tells the agent why nothing was written.
func (s *Server) handleConvert(ctx context.Context, request mcp.CallToolRequest, args RunArgs) (*stepmesh.ConvertReport, error) {
	if args.Input == "" {
		return nil, errors.New("input is required")
	}
	req := s.defaults.Convert
	req.Input = args.Input
	req.Tolerance = args.tolerance(req.Tolerance)

	report, err := s.pipeline.Convert(ctx, req)
	if errors.Is(err, domain.ErrNoMeshes) {
		slog.Warn("MCP convert_step: no meshes produced", "input", args.Input)
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("convert failed: %w", err)
	}
	return report, nil
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest, args RunArgs) (*stepmesh.ExportReport, error) {
	if args.Input == "" {
		return nil, errors.New("input is required")
	}
	req := s.defaults.Export
	req.Input = args.Input
	req.Tolerance = args.tolerance(req.Tolerance)

	report, err := s.pipeline.Export(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	return report, nil
}

func (s *Server) registerResources() {
	// EXPOSE: stepmesh://manifest
	s.mcpServer.AddResource(mcp.NewResource(ManifestURI, "Manifest of the last export",
		mcp.WithMIMEType("application/json"),
	), s.readManifest)
}

func (s *Server) readManifest(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	manifest, err := s.pipeline.Store().Load(ctx, s.defaults.Export.ManifestKey())
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	jsonBytes, err := json.Marshal(manifest)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ManifestURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

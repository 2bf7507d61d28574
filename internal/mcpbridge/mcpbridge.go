// Package mcpbridge exposes a small set of read-mostly operator tools
// over the Model Context Protocol, grounded on the teacher's
// mcp_server.go: a *server.MCPServer wrapped in a StreamableHTTPServer,
// with tools registered via mcp.NewTool and returning
// mcp.NewToolResultText/NewToolResultError.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cwsl/sdrctl/internal/healthz"
	"github.com/cwsl/sdrctl/internal/receiver"
	"github.com/cwsl/sdrctl/internal/worker"
)

// Bridge wraps a receiver façade in an MCP tool server.
type Bridge struct {
	recv *receiver.Facade
	w    *worker.Worker

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

// New builds an MCP server exposing read-mostly tools over r.
func New(r *receiver.Facade, w *worker.Worker) *Bridge {
	b := &Bridge{recv: r, w: w}

	b.mcpServer = server.NewMCPServer("sdrctl", "1.0.0", server.WithToolCapabilities(true))
	b.registerTools()
	b.httpServer = server.NewStreamableHTTPServer(b.mcpServer)
	return b
}

// Handler returns the HTTP handler serving the MCP protocol endpoint.
func (b *Bridge) Handler() *server.StreamableHTTPServer { return b.httpServer }

func (b *Bridge) registerTools() {
	b.mcpServer.AddTool(
		mcp.NewTool("get_server_health",
			mcp.WithDescription("Get the receiver server's host resource usage (CPU, memory, load average) and worker queue diagnostics. Use this to check whether the control plane itself is under load."),
		),
		b.handleGetServerHealth,
	)

	b.mcpServer.AddTool(
		mcp.NewTool("list_vfos",
			mcp.WithDescription("List the handles of every currently live VFO on the receiver."),
		),
		b.handleListVfos,
	)

	b.mcpServer.AddTool(
		mcp.NewTool("get_vfo_demod",
			mcp.WithDescription("Report whether one VFO handle is live. The demodulator mode and filter edges are not included."),
			mcp.WithNumber("handle", mcp.Required(), mcp.Description("The VFO handle, as returned by list_vfos.")),
		),
		b.handleGetVfoDemod,
	)
}

func (b *Bridge) handleGetServerHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := healthz.Collect(b.w)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal health snapshot: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (b *Bridge) handleListVfos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handles := b.recv.VfoHandles()
	data, err := json.Marshal(handles)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal handle list: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (b *Bridge) handleGetVfoDemod(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handleF := request.GetFloat("handle", -1)
	if handleF < 0 {
		return mcp.NewToolResultError("handle is required"), nil
	}
	vf, ok := b.recv.GetVfo(uint64(handleF))
	if !ok {
		return mcp.NewToolResultError("VFO_NOT_FOUND"), nil
	}
	_ = vf
	// The VFO façade's demod/filter state is worker-thread-confined and
	// only observable through its event stream (spec.md invariant 6), so
	// this tool reports liveness; a richer snapshot would require
	// subscribing and waiting for the VfoSyncStart replay.
	return mcp.NewToolResultText(fmt.Sprintf(`{"handle":%d,"live":true}`, uint64(handleF))), nil
}

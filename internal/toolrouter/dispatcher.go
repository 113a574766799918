package toolrouter

import (
	"context"
	"fmt"
	"sync"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/fsal"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// Dispatcher executes a routed tool call against the server it was
// matched to and returns the raw result.
type Dispatcher interface {
	Dispatch(ctx context.Context, executionID domain.ExecutionID, server *domain.ToolServer, toolName string, args map[string]interface{}) (interface{}, error)
}

// LocalDispatcher executes fs.*/filesystem.* tools directly against
// internal/fsal on the execution's mounted volume, bypassing any wire
// protocol since the call never leaves the process.
type LocalDispatcher struct {
	fsal    *fsal.FSAL
	volumes VolumeForExecution
}

// VolumeForExecution resolves which volume an execution's local file
// calls operate against, since the SMCP args carry only a path.
type VolumeForExecution interface {
	VolumeFor(ctx context.Context, executionID domain.ExecutionID) (domain.VolumeID, error)
}

func NewLocalDispatcher(f *fsal.FSAL, volumes VolumeForExecution) *LocalDispatcher {
	return &LocalDispatcher{fsal: f, volumes: volumes}
}

// intArg coerces a numeric tool argument that may have arrived as a
// Go int64 (orchestrator-internal calls) or a float64 (decoded from
// the signed envelope's JSON payload).
func intArg(args map[string]interface{}, key string) int64 {
	switch v := args[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, executionID domain.ExecutionID, server *domain.ToolServer, toolName string, args map[string]interface{}) (interface{}, error) {
	volumeID, err := d.volumes.VolumeFor(ctx, executionID)
	if err != nil {
		return nil, err
	}
	path, _ := args["path"].(string)

	switch toolName {
	case "fs.read", "filesystem.read":
		offset := intArg(args, "offset")
		length := int(intArg(args, "length"))
		if length == 0 {
			length = 1 << 20
		}
		return d.fsal.Read(ctx, executionID, volumeID, path, offset, length)

	case "fs.write", "filesystem.write":
		offset := intArg(args, "offset")
		data, _ := args["data"].([]byte)
		n, err := d.fsal.Write(ctx, executionID, volumeID, path, offset, data)
		return n, err

	case "fs.create", "filesystem.create":
		return d.fsal.CreateFile(ctx, executionID, volumeID, path)

	case "fs.mkdir", "filesystem.mkdir":
		return nil, d.fsal.CreateDirectory(ctx, executionID, volumeID, path)

	case "fs.delete", "filesystem.delete":
		return nil, d.fsal.DeleteFile(ctx, executionID, volumeID, path)

	case "fs.rmdir", "filesystem.rmdir":
		return nil, d.fsal.DeleteDirectory(ctx, executionID, volumeID, path)

	case "fs.readdir", "filesystem.readdir", "fs.list", "filesystem.list":
		return d.fsal.Readdir(ctx, executionID, volumeID, path)

	case "fs.rename", "filesystem.rename":
		toPath, _ := args["to_path"].(string)
		return nil, d.fsal.Rename(ctx, executionID, volumeID, path, toPath)

	default:
		return nil, fmt.Errorf("toolrouter: local dispatch has no handler for %q", toolName)
	}
}

// RemoteDispatcher wraps a tool server's stdio or HTTP/SSE MCP
// transport, connecting lazily and reusing the client for the life of
// the process.
type RemoteDispatcher struct {
	mu      sync.Mutex
	clients map[domain.ToolServerID]*client.Client
}

func NewRemoteDispatcher() *RemoteDispatcher {
	return &RemoteDispatcher{clients: make(map[domain.ToolServerID]*client.Client)}
}

func (d *RemoteDispatcher) Dispatch(ctx context.Context, executionID domain.ExecutionID, server *domain.ToolServer, toolName string, args map[string]interface{}) (interface{}, error) {
	c, err := d.clientFor(ctx, server)
	if err != nil {
		return nil, err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	result, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("toolrouter: remote call %q on %s: %w", toolName, server.ID, err)
	}
	return result, nil
}

func (d *RemoteDispatcher) clientFor(ctx context.Context, server *domain.ToolServer) (*client.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.clients[server.ID]; ok {
		return c, nil
	}

	var t transport.Interface
	var err error
	switch server.Transport {
	case domain.TransportStdio:
		t = transport.NewStdio(server.Command, nil, server.Args...)
	case domain.TransportHTTP:
		t, err = transport.NewStreamableHTTP(server.URL)
	case domain.TransportSSE:
		t, err = transport.NewSSE(server.URL)
	default:
		return nil, fmt.Errorf("toolrouter: unsupported transport %q for server %s", server.Transport, server.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("toolrouter: building transport for %s: %w", server.ID, err)
	}

	c := client.NewClient(t)
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("toolrouter: starting client for %s: %w", server.ID, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "aegis-toolrouter", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("toolrouter: initializing client for %s: %w", server.ID, err)
	}

	d.clients[server.ID] = c
	return c, nil
}

func (d *RemoteDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.clients {
		c.Close()
	}
	d.clients = make(map[domain.ToolServerID]*client.Client)
}

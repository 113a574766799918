package toolrouter

import (
	"context"
	"testing"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeServers struct {
	servers []*domain.ToolServer
}

func (f *fakeServers) Running(context.Context) ([]*domain.ToolServer, error) {
	return f.servers, nil
}

func TestRouteExactMatch(t *testing.T) {
	r := NewRouter(&fakeServers{servers: []*domain.ToolServer{
		{ID: "tsrv_1", Status: domain.ToolServerRunning, Capabilities: []string{"fs.read"}},
	}})
	s, err := r.Route(context.Background(), "fs.read")
	require.NoError(t, err)
	require.Equal(t, domain.ToolServerID("tsrv_1"), s.ID)
}

func TestRoutePrefixMatch(t *testing.T) {
	r := NewRouter(&fakeServers{servers: []*domain.ToolServer{
		{ID: "tsrv_1", Status: domain.ToolServerRunning, Capabilities: []string{"web.*"}},
	}})
	s, err := r.Route(context.Background(), "web.fetch")
	require.NoError(t, err)
	require.Equal(t, domain.ToolServerID("tsrv_1"), s.ID)
}

func TestRouteNoMatch(t *testing.T) {
	r := NewRouter(&fakeServers{servers: []*domain.ToolServer{
		{ID: "tsrv_1", Status: domain.ToolServerRunning, Capabilities: []string{"cmd.run"}},
	}})
	_, err := r.Route(context.Background(), "fs.read")
	require.ErrorIs(t, err, ErrNoMatch)
}

func TestRouteAmbiguous(t *testing.T) {
	r := NewRouter(&fakeServers{servers: []*domain.ToolServer{
		{ID: "tsrv_1", Status: domain.ToolServerRunning, Capabilities: []string{"fs.*"}},
		{ID: "tsrv_2", Status: domain.ToolServerRunning, Capabilities: []string{"fs.read"}},
	}})
	_, err := r.Route(context.Background(), "fs.read")
	require.ErrorIs(t, err, ErrAmbiguous)
}

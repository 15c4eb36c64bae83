package mcp

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/app/apptest"
)

func TestNewServer(t *testing.T) {
	t.Run("nil chat service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingChatService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Chat: &mockChatService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.Equal(t, 5, server.ports.Options.TopK)
		assert.Zero(t, ports.Options.TopK)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil chat service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingChatService)
	})

	t.Run("chat only is valid", func(t *testing.T) {
		ports := &Ports{
			Chat: &mockChatService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}

func TestServer_OverTransport(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	env.Ingest(t, "france.txt", "The capital of France is Paris.")

	server, err := NewServer(&Ports{
		Chat:      env.App.Chat,
		Retrieval: env.App.Retrieval,
		Ingest:    env.App.Ingest,
		Metrics:   env.App.Metrics,
	})
	require.NoError(t, err)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, len(tools.Tools))
	for i, tool := range tools.Tools {
		names[i] = tool.Name
	}
	assert.ElementsMatch(t, []string{"ask", "retrieve", "ingest"}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "ask",
		Arguments: map[string]any{"question": "What is the capital of France?"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	out, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, out["answer"], "Paris")

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "ask",
		Arguments: map[string]any{"question": " "},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_Instructions(t *testing.T) {
	chatOnly, err := NewServer(&Ports{Chat: &mockChatService{}})
	require.NoError(t, err)
	assert.Contains(t, chatOnly.instructions(), "ask")
	assert.NotContains(t, chatOnly.instructions(), "ingest")

	env := apptest.New(t)
	full, err := NewServer(&Ports{Chat: env.App.Chat, Retrieval: env.App.Retrieval, Ingest: env.App.Ingest})
	require.NoError(t, err)
	assert.Contains(t, full.instructions(), "retrieve")
	assert.Contains(t, full.instructions(), "ingest")
}

func TestServer_Handler(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	server, err := NewServer(&Ports{Chat: env.App.Chat, Retrieval: env.App.Retrieval})
	require.NoError(t, err)

	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: srv.URL}, nil)
	require.NoError(t, err)
	defer session.Close()

	init := session.InitializeResult()
	require.NotNil(t, init)
	assert.Equal(t, "docqa", init.ServerInfo.Name)
	assert.Contains(t, init.Instructions, "retrieve")

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, tools.Tools, 2)
}

func TestServer_RunHTTPStopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{Chat: &mockChatService{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, server.RunHTTP(ctx, "127.0.0.1:0"))
}

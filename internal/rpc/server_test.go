package rpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/metorial/tattr/internal/catalog"
)

const bufSize = 1024 * 1024

func setupTestServer(t *testing.T) (*catalog.Catalog, *Client, *grpc.ClientConn) {
	t.Helper()
	ctx := context.Background()

	c, err := catalog.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "rpc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Bootstrap(ctx))

	listener := bufconn.Listen(bufSize)
	grpcServer := grpc.NewServer()
	RegisterCatalogServer(grpcServer, NewServer(c))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			t.Logf("Server error: %v", err)
		}
	}()
	t.Cleanup(grpcServer.Stop)

	client, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return c, client, client.conn
}

func TestRegisterHost(t *testing.T) {
	c, client, _ := setupTestServer(t)
	ctx := context.Background()

	host, err := client.RegisterHost(ctx, "node1", []string{"prod", "agent"}, map[string]string{"os": "linux"})
	require.NoError(t, err)
	assert.NotZero(t, host.ID)
	assert.Equal(t, "node1", host.Hostname)
	assert.Equal(t, []string{"agent", "prod"}, host.Tags)
	assert.Equal(t, map[string]string{"os": "linux"}, host.Attributes)

	host, err = client.RegisterHost(ctx, "node1", []string{"prod"}, map[string]string{"os": "debian"})
	require.NoError(t, err)
	assert.Equal(t, "debian", host.Attributes["os"])

	stored, err := c.Hosts().Get(ctx, "node1")
	require.NoError(t, err)
	assert.Equal(t, host.Tags, stored.Tags)
	assert.Equal(t, host.Attributes, stored.Attributes)

	_, err = client.RegisterHost(ctx, "", nil, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestQueryAndList(t *testing.T) {
	c, client, _ := setupTestServer(t)
	ctx := context.Background()

	for host, tags := range map[string][]string{
		"web1": {"web"},
		"web2": {"web", "staging"},
		"db1":  {"db"},
	} {
		_, err := c.Hosts().Register(ctx, host, tags, map[string]string{"role": tags[0]})
		require.NoError(t, err)
	}

	hosts, err := client.Query(ctx, []string{"web", "+db", "-staging"})
	require.NoError(t, err)
	assert.Equal(t, []string{"db1", "web1"}, hosts)

	hosts, err = client.Query(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"db1", "web1", "web2"}, hosts)

	hosts, err = client.Query(ctx, []string{"ghost"})
	require.NoError(t, err)
	assert.Empty(t, hosts)

	_, err = client.Query(ctx, []string{"-"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	list, err := client.ListHosts(ctx, []string{"web"}, []string{"role=web"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "web1", list[0].Hostname)
	assert.Equal(t, []string{"staging", "web"}, list[1].Tags)

	list, err = client.ListHosts(ctx, nil, []string{"role=db"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "db1", list[0].Hostname)
}

func TestGetHostNotFound(t *testing.T) {
	_, client, _ := setupTestServer(t)

	_, err := client.GetHost(context.Background(), "ghost")
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Equal(t, "host (ghost) doesn't exist", st.Message())
}

func TestMalformedRequest(t *testing.T) {
	_, _, conn := setupTestServer(t)

	in, err := structpb.NewStruct(map[string]interface{}{"tokens": "web +db"})
	require.NoError(t, err)

	err = conn.Invoke(context.Background(), fullMethod(methodQuery), in, new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealthService(t *testing.T) {
	_, _, conn := setupTestServer(t)

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(),
		&grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{&catalog.NotFoundError{Kind: catalog.KindHost, Name: "x"}, codes.NotFound},
		{&catalog.AlreadyExistsError{Kind: catalog.KindTag, Name: "x"}, codes.AlreadyExists},
		{&catalog.InUseError{Kind: catalog.KindTag, Name: "x", Count: 1}, codes.FailedPrecondition},
		{&catalog.InvalidQueryError{Token: "+"}, codes.InvalidArgument},
		{catalog.ErrEmptyName, codes.InvalidArgument},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{assert.AnError, codes.Internal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(toStatus("Test", tt.err)), tt.err.Error())
	}
}

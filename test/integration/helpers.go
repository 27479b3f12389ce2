// Package integration runs tattrd components together over real listeners.
package integration

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"google.golang.org/grpc"

	"github.com/metorial/tattr/internal/api"
	"github.com/metorial/tattr/internal/catalog"
	"github.com/metorial/tattr/internal/rpc"
)

// Server is an in-process tattrd: one catalog served over gRPC and HTTP.
type Server struct {
	Catalog  *catalog.Catalog
	GRPCAddr string
	HTTPURL  string
}

func StartServer(t *testing.T) *Server {
	t.Helper()

	ctx := context.Background()
	c, err := catalog.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "tattr.db"))
	if err != nil {
		t.Fatalf("Failed to open catalog: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Failed to bootstrap catalog: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}

	grpcServer := grpc.NewServer()
	rpc.RegisterCatalogServer(grpcServer, rpc.NewServer(c))
	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			t.Logf("Server error: %v", err)
		}
	}()
	t.Cleanup(grpcServer.Stop)

	httpServer := httptest.NewServer(api.NewRouter(c, api.LoggingMiddleware))
	t.Cleanup(httpServer.Close)

	return &Server{
		Catalog:  c,
		GRPCAddr: listener.Addr().String(),
		HTTPURL:  httpServer.URL,
	}
}

// FakeConsul answers health queries for service with addr as the only
// passing instance. It returns the address to hand to the Consul client.
func FakeConsul(t *testing.T, service, addr string) string {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("Failed to split %s: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Failed to parse port: %v", err)
	}

	consulServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health/service/"+service {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		response := []map[string]interface{}{
			{
				"Node": map[string]interface{}{"Address": host},
				"Service": map[string]interface{}{
					"Service": service,
					"Address": host,
					"Port":    port,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(consulServer.Close)

	return strings.TrimPrefix(consulServer.URL, "http://")
}

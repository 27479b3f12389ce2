package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/metorial/tattr/internal/models"
)

type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial creates a client for the catalog service at addr. The connection is
// established lazily on the first call.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(10 * 1024 * 1024)),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("create grpc client: %w", err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient wraps an existing connection. Close does not close cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Query(ctx context.Context, tokens []string) ([]string, error) {
	out, err := c.invoke(ctx, methodQuery, map[string]interface{}{"tokens": stringsValue(tokens)})
	if err != nil {
		return nil, err
	}
	hosts, err := stringListField(out, "hosts")
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if hosts == nil {
		hosts = []string{}
	}
	return hosts, nil
}

func (c *Client) GetHost(ctx context.Context, hostname string) (*models.Host, error) {
	out, err := c.invoke(ctx, methodGetHost, map[string]interface{}{"hostname": hostname})
	if err != nil {
		return nil, err
	}
	return hostFromStruct(out.GetFields()["host"].GetStructValue())
}

// ListHosts lists hosts carrying every tag and matching every attr filter,
// each "name" or "name=value".
func (c *Client) ListHosts(ctx context.Context, tags, attrs []string) ([]models.Host, error) {
	out, err := c.invoke(ctx, methodListHosts, map[string]interface{}{
		"tags":  stringsValue(tags),
		"attrs": stringsValue(attrs),
	})
	if err != nil {
		return nil, err
	}

	hosts := []models.Host{}
	for _, v := range out.GetFields()["hosts"].GetListValue().GetValues() {
		h, err := hostFromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		hosts = append(hosts, *h)
	}
	return hosts, nil
}

func (c *Client) RegisterHost(ctx context.Context, hostname string, tags []string, attrs map[string]string) (*models.Host, error) {
	values := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		values[k] = v
	}

	out, err := c.invoke(ctx, methodRegisterHost, map[string]interface{}{
		"hostname":   hostname,
		"tags":       stringsValue(tags),
		"attributes": values,
	})
	if err != nil {
		return nil, err
	}
	return hostFromStruct(out.GetFields()["host"].GetStructValue())
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method string, req map[string]interface{}) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

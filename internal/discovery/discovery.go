// Package discovery registers tattrd with Consul and lets agents find it.
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	consul "github.com/hashicorp/consul/api"

	"github.com/metorial/tattr/internal/logger"
)

const (
	checkInterval   = "10s"
	checkTimeout    = "5s"
	deregisterAfter = "30s"
)

// HTTPServiceName is the Consul service name of the HTTP API for a tattrd
// registered as name.
func HTTPServiceName(name string) string {
	return name + "-http"
}

func newClient(addr string) (*consul.Client, error) {
	cfg := consul.DefaultConfig()
	cfg.Address = addr

	client, err := consul.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}
	return client, nil
}

// Registrar registers the gRPC and HTTP endpoints of one tattrd instance.
type Registrar struct {
	client *consul.Client
	name   string
	ids    []string
}

func NewRegistrar(consulAddr, serviceName string) (*Registrar, error) {
	client, err := newClient(consulAddr)
	if err != nil {
		return nil, err
	}
	return &Registrar{client: client, name: serviceName}, nil
}

// Register registers both endpoints at address with health checks. An empty
// address falls back to the first non-loopback IPv4 address.
func (r *Registrar) Register(address string, grpcPort, httpPort int) error {
	if address == "" {
		address = LocalIP()
	}
	instance := uuid.NewString()

	registrations := []*consul.AgentServiceRegistration{
		{
			ID:      r.name + "-" + instance,
			Name:    r.name,
			Port:    grpcPort,
			Address: address,
			Check: &consul.AgentServiceCheck{
				GRPC:                           fmt.Sprintf("%s:%d", address, grpcPort),
				Interval:                       checkInterval,
				Timeout:                        checkTimeout,
				DeregisterCriticalServiceAfter: deregisterAfter,
			},
			Tags: []string{"tattr", "catalog", "grpc"},
		},
		{
			ID:      HTTPServiceName(r.name) + "-" + instance,
			Name:    HTTPServiceName(r.name),
			Port:    httpPort,
			Address: address,
			Check: &consul.AgentServiceCheck{
				HTTP:                           fmt.Sprintf("http://%s:%d/api/v1/health", address, httpPort),
				Interval:                       checkInterval,
				Timeout:                        checkTimeout,
				DeregisterCriticalServiceAfter: deregisterAfter,
			},
			Tags: []string{"tattr", "catalog", "http", "api"},
		},
	}

	for _, reg := range registrations {
		if err := r.client.Agent().ServiceRegister(reg); err != nil {
			return fmt.Errorf("register %s: %w", reg.Name, err)
		}
		r.ids = append(r.ids, reg.ID)
		logger.Infow("Registered with Consul", "service", reg.Name, "id", reg.ID, "address", address, "port", reg.Port)
	}
	return nil
}

// IDs returns the service IDs registered so far.
func (r *Registrar) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Deregister removes every service registered by this Registrar. It keeps
// going past failures and returns the first one.
func (r *Registrar) Deregister() error {
	var first error
	for _, id := range r.ids {
		if err := r.client.Agent().ServiceDeregister(id); err != nil {
			logger.Warnf("Error deregistering %s: %v", id, err)
			if first == nil {
				first = fmt.Errorf("deregister %s: %w", id, err)
			}
		}
	}
	r.ids = nil
	return first
}

type Discovery struct {
	client *consul.Client
}

func NewDiscovery(consulAddr string) (*Discovery, error) {
	client, err := newClient(consulAddr)
	if err != nil {
		return nil, err
	}
	return &Discovery{client: client}, nil
}

// Discover returns host:port of the first healthy instance of service.
func (d *Discovery) Discover(service string) (string, error) {
	services, _, err := d.client.Health().Service(service, "", true, nil)
	if err != nil {
		return "", fmt.Errorf("query consul: %w", err)
	}
	if len(services) == 0 {
		return "", fmt.Errorf("no healthy %s services found", service)
	}

	entry := services[0]
	addr := entry.Service.Address
	if addr == "" && entry.Node != nil {
		addr = entry.Node.Address
	}
	return net.JoinHostPort(addr, fmt.Sprint(entry.Service.Port)), nil
}

// Watch polls Consul every interval and sends the address of service each
// time it changes. The channel is closed when ctx is done.
func (d *Discovery) Watch(ctx context.Context, service string, interval time.Duration) <-chan string {
	addrs := make(chan string, 1)

	go func() {
		defer close(addrs)

		var last string
		for {
			wait := interval
			addr, err := d.Discover(service)
			switch {
			case err != nil:
				logger.Warnf("Discovery of %s failed: %v", service, err)
				wait = interval / 2
			case addr != last:
				logger.Infof("Discovered %s at %s", service, addr)
				select {
				case addrs <- addr:
					last = addr
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()

	return addrs
}

// LocalIP returns the first non-loopback IPv4 address, or 127.0.0.1.
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}

	return "127.0.0.1"
}

package cli

import (
	"context"

	"github.com/metorial/tattr/internal/catalog"
	"github.com/metorial/tattr/internal/models"
)

// Backend is what the commands operate on: the catalog database directly or
// a tattrd HTTP API.
type Backend interface {
	Ping(ctx context.Context) error

	AddHost(ctx context.Context, name string) error
	RemoveHost(ctx context.Context, name string) error
	RenameHost(ctx context.Context, oldName, newName string) error
	GetHost(ctx context.Context, name string) (*models.Host, error)
	ListHosts(ctx context.Context, tags, attrs []string) ([]models.Host, error)
	SetTag(ctx context.Context, hostname, tag string) error
	UnsetTag(ctx context.Context, hostname, tag string) error
	SetAttribute(ctx context.Context, hostname, attr, value string) error
	UnsetAttribute(ctx context.Context, hostname, attr string) error

	AddTag(ctx context.Context, name string) error
	RemoveTag(ctx context.Context, name string, force bool) error
	RenameTag(ctx context.Context, oldName, newName string) error
	GetTag(ctx context.Context, name string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)

	AddAttribute(ctx context.Context, name string) error
	RemoveAttribute(ctx context.Context, name string, force bool) error
	RenameAttribute(ctx context.Context, oldName, newName string) error
	GetAttribute(ctx context.Context, name string) (*models.Attribute, error)
	ListAttributes(ctx context.Context) ([]models.Attribute, error)

	Query(ctx context.Context, tokens []string) ([]string, error)

	Close() error
}

var (
	_ Backend = (*localBackend)(nil)
	_ Backend = (*Client)(nil)
)

// localBackend runs commands against the catalog database.
type localBackend struct {
	c *catalog.Catalog
}

func newLocalBackend(c *catalog.Catalog) *localBackend {
	return &localBackend{c: c}
}

func (b *localBackend) Bootstrap(ctx context.Context) error { return b.c.Bootstrap(ctx) }

func (b *localBackend) Ping(ctx context.Context) error { return b.c.Ping(ctx) }

func (b *localBackend) AddHost(ctx context.Context, name string) error {
	return b.c.Hosts().Add(ctx, name)
}

func (b *localBackend) RemoveHost(ctx context.Context, name string) error {
	return b.c.Hosts().Remove(ctx, name)
}

func (b *localBackend) RenameHost(ctx context.Context, oldName, newName string) error {
	return b.c.Hosts().Rename(ctx, oldName, newName)
}

func (b *localBackend) GetHost(ctx context.Context, name string) (*models.Host, error) {
	return b.c.Hosts().Get(ctx, name)
}

func (b *localBackend) ListHosts(ctx context.Context, tags, attrs []string) ([]models.Host, error) {
	q := b.c.Hosts().Filter()
	for _, tag := range tags {
		q = q.FilterTag(tag)
	}
	for _, attr := range attrs {
		q = q.Where(catalog.ParseAttrFilter(attr))
	}
	return q.List(ctx)
}

func (b *localBackend) SetTag(ctx context.Context, hostname, tag string) error {
	return b.c.Hosts().SetTag(ctx, hostname, tag)
}

func (b *localBackend) UnsetTag(ctx context.Context, hostname, tag string) error {
	return b.c.Hosts().UnsetTag(ctx, hostname, tag)
}

func (b *localBackend) SetAttribute(ctx context.Context, hostname, attr, value string) error {
	return b.c.Hosts().SetAttribute(ctx, hostname, attr, value)
}

func (b *localBackend) UnsetAttribute(ctx context.Context, hostname, attr string) error {
	return b.c.Hosts().UnsetAttribute(ctx, hostname, attr)
}

func (b *localBackend) AddTag(ctx context.Context, name string) error {
	return b.c.Tags().Add(ctx, name)
}

func (b *localBackend) RemoveTag(ctx context.Context, name string, force bool) error {
	return b.c.Tags().Remove(ctx, name, force)
}

func (b *localBackend) RenameTag(ctx context.Context, oldName, newName string) error {
	return b.c.Tags().Rename(ctx, oldName, newName)
}

func (b *localBackend) GetTag(ctx context.Context, name string) (*models.Tag, error) {
	return b.c.Tags().Get(ctx, name)
}

func (b *localBackend) ListTags(ctx context.Context) ([]models.Tag, error) {
	return b.c.Tags().List(ctx)
}

func (b *localBackend) AddAttribute(ctx context.Context, name string) error {
	return b.c.Attributes().Add(ctx, name)
}

func (b *localBackend) RemoveAttribute(ctx context.Context, name string, force bool) error {
	return b.c.Attributes().Remove(ctx, name, force)
}

func (b *localBackend) RenameAttribute(ctx context.Context, oldName, newName string) error {
	return b.c.Attributes().Rename(ctx, oldName, newName)
}

func (b *localBackend) GetAttribute(ctx context.Context, name string) (*models.Attribute, error) {
	return b.c.Attributes().Get(ctx, name)
}

func (b *localBackend) ListAttributes(ctx context.Context) ([]models.Attribute, error) {
	return b.c.Attributes().List(ctx)
}

func (b *localBackend) Query(ctx context.Context, tokens []string) ([]string, error) {
	return b.c.Hosts().QueryNames(ctx, tokens)
}

func (b *localBackend) Close() error { return b.c.Close() }

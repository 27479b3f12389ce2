package catalog

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/metorial/tattr/internal/logger"
	"github.com/metorial/tattr/internal/models"
)

type Hosts struct {
	c *Catalog
}

func (h *Hosts) Add(ctx context.Context, name string) error {
	err := h.c.withTx(ctx, func(tx *txn) error {
		_, err := hostEntity.insert(tx, name)
		return err
	})
	if err == nil {
		logger.Debugw("Added host", "host", name)
	}
	return err
}

// Remove deletes the host together with its tag and attribute associations.
func (h *Hosts) Remove(ctx context.Context, name string) error {
	err := h.c.withTx(ctx, func(tx *txn) error {
		id, err := hostEntity.id(tx, name)
		if err != nil {
			return err
		}
		if err := hostTags.deleteFor(tx, "host_id", id); err != nil {
			return err
		}
		if err := hostAttributes.deleteFor(tx, "host_id", id); err != nil {
			return err
		}
		return hostEntity.delete(tx, id)
	})
	if err == nil {
		logger.Debugw("Removed host", "host", name)
	}
	return err
}

func (h *Hosts) Rename(ctx context.Context, oldName, newName string) error {
	return h.c.withTx(ctx, func(tx *txn) error {
		return hostEntity.rename(tx, oldName, newName)
	})
}

func (h *Hosts) Exists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := h.c.withTx(ctx, func(tx *txn) error {
		var err error
		ok, err = hostEntity.exists(tx, name)
		return err
	})
	return ok, err
}

func (h *Hosts) Names(ctx context.Context) ([]string, error) {
	return withNames(ctx, h.c, hostEntity)
}

func (h *Hosts) Get(ctx context.Context, name string) (*models.Host, error) {
	var host *models.Host
	err := h.c.withTx(ctx, func(tx *txn) error {
		hosts, err := loadHosts(tx, `h.hostname = ?`, []any{name})
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			return &NotFoundError{Kind: KindHost, Name: name}
		}
		host = &hosts[0]
		return nil
	})
	return host, err
}

// List returns every host. It is the same as an unfiltered HostQuery.
func (h *Hosts) List(ctx context.Context) ([]models.Host, error) {
	return h.Filter().List(ctx)
}

// SetTag links the tag to the host. Linking an already linked tag is a no-op.
func (h *Hosts) SetTag(ctx context.Context, hostname, tagname string) error {
	return h.c.withTx(ctx, func(tx *txn) error {
		hostID, tagID, err := hostAndRef(tx, hostname, tagEntity, tagname)
		if err != nil {
			return err
		}
		return linkTag(tx, hostID, tagID)
	})
}

// UnsetTag unlinks the tag from the host. A missing link is not an error.
func (h *Hosts) UnsetTag(ctx context.Context, hostname, tagname string) error {
	return h.c.withTx(ctx, func(tx *txn) error {
		hostID, tagID, err := hostAndRef(tx, hostname, tagEntity, tagname)
		if err != nil {
			return err
		}
		_, err = tx.exec(`DELETE FROM host_tags WHERE host_id = ? AND tag_id = ?`, hostID, tagID)
		if err != nil {
			return fmt.Errorf("unset tag: %w", err)
		}
		return nil
	})
}

// SetAttribute sets the host's value for the attribute, replacing any
// existing value.
func (h *Hosts) SetAttribute(ctx context.Context, hostname, attrname, value string) error {
	return h.c.withTx(ctx, func(tx *txn) error {
		hostID, attrID, err := hostAndRef(tx, hostname, attributeEntity, attrname)
		if err != nil {
			return err
		}
		return upsertValue(tx, hostID, attrID, value)
	})
}

// UnsetAttribute removes the host's value for the attribute. A missing value
// is not an error.
func (h *Hosts) UnsetAttribute(ctx context.Context, hostname, attrname string) error {
	return h.c.withTx(ctx, func(tx *txn) error {
		hostID, attrID, err := hostAndRef(tx, hostname, attributeEntity, attrname)
		if err != nil {
			return err
		}
		_, err = tx.exec(`DELETE FROM host_attributes WHERE host_id = ? AND attribute_id = ?`, hostID, attrID)
		if err != nil {
			return fmt.Errorf("unset attribute: %w", err)
		}
		return nil
	})
}

// Register makes sure the host exists, carries every tag in tags and has
// every value in attrs, creating missing hosts, tags and attributes. Tags and
// attributes not mentioned are left alone. It runs in one transaction.
func (h *Hosts) Register(ctx context.Context, hostname string, tags []string, attrs map[string]string) (*models.Host, error) {
	var host *models.Host
	err := h.c.withTx(ctx, func(tx *txn) error {
		hostID, err := hostEntity.ensure(tx, hostname)
		if err != nil {
			return err
		}

		// sorted so concurrent registrations take row locks in the same order
		for _, tag := range slices.Sorted(slices.Values(tags)) {
			tagID, err := tagEntity.ensure(tx, tag)
			if err != nil {
				return err
			}
			if err := linkTag(tx, hostID, tagID); err != nil {
				return err
			}
		}

		for _, name := range slices.Sorted(maps.Keys(attrs)) {
			attrID, err := attributeEntity.ensure(tx, name)
			if err != nil {
				return err
			}
			if err := upsertValue(tx, hostID, attrID, attrs[name]); err != nil {
				return err
			}
		}

		hosts, err := loadHosts(tx, `h.id = ?`, []any{hostID})
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			return &NotFoundError{Kind: KindHost, Name: hostname}
		}
		host = &hosts[0]
		return nil
	})
	if err == nil {
		logger.Debugw("Registered host", "host", hostname, "tags", len(tags), "attributes", len(attrs))
	}
	return host, err
}

func hostAndRef(tx *txn, hostname string, ref entity, refName string) (int64, int64, error) {
	hostID, err := hostEntity.id(tx, hostname)
	if err != nil {
		return 0, 0, err
	}
	refID, err := ref.id(tx, refName)
	if err != nil {
		return 0, 0, err
	}
	return hostID, refID, nil
}

func linkTag(tx *txn, hostID, tagID int64) error {
	_, err := tx.exec(`INSERT INTO host_tags (host_id, tag_id) VALUES (?, ?)
		ON CONFLICT (host_id, tag_id) DO NOTHING`, hostID, tagID)
	if err != nil {
		return fmt.Errorf("set tag: %w", err)
	}
	return nil
}

func upsertValue(tx *txn, hostID, attrID int64, value string) error {
	_, err := tx.exec(`INSERT INTO host_attributes (host_id, attribute_id, value) VALUES (?, ?, ?)
		ON CONFLICT (host_id, attribute_id) DO UPDATE SET value = excluded.value`, hostID, attrID, value)
	if err != nil {
		return fmt.Errorf("set attribute: %w", err)
	}
	return nil
}

// loadHosts builds snapshots for the hosts matching where, a condition over
// the hosts table aliased as h. Results are ordered by hostname.
func loadHosts(tx *txn, where string, args []any) ([]models.Host, error) {
	rows, err := tx.query(`SELECT h.id, h.hostname FROM hosts h WHERE `+where+` ORDER BY h.hostname`, args...)
	if err != nil {
		return nil, fmt.Errorf("query hosts: %w", err)
	}

	hosts := []models.Host{}
	for rows.Next() {
		h := models.Host{Tags: []string{}, Attributes: map[string]string{}}
		if err := rows.Scan(&h.ID, &h.Hostname); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan host: %w", err)
		}
		hosts = append(hosts, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query hosts: %w", err)
	}
	if len(hosts) == 0 {
		return hosts, nil
	}

	index := make(map[int64]*models.Host, len(hosts))
	for i := range hosts {
		index[hosts[i].ID] = &hosts[i]
	}

	matching := `(SELECT h.id FROM hosts h WHERE ` + where + `)`

	rows, err = tx.query(`SELECT ht.host_id, t.tagname FROM host_tags ht
		JOIN tags t ON t.id = ht.tag_id
		WHERE ht.host_id IN `+matching+`
		ORDER BY t.tagname`, args...)
	if err != nil {
		return nil, fmt.Errorf("query host tags: %w", err)
	}
	for rows.Next() {
		var id int64
		var tag string
		if err := rows.Scan(&id, &tag); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan host tag: %w", err)
		}
		if h, ok := index[id]; ok {
			h.Tags = append(h.Tags, tag)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query host tags: %w", err)
	}

	rows, err = tx.query(`SELECT ha.host_id, a.attrname, ha.value FROM host_attributes ha
		JOIN attributes a ON a.id = ha.attribute_id
		WHERE ha.host_id IN `+matching, args...)
	if err != nil {
		return nil, fmt.Errorf("query host attributes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name, value string
		if err := rows.Scan(&id, &name, &value); err != nil {
			return nil, fmt.Errorf("scan host attribute: %w", err)
		}
		if h, ok := index[id]; ok {
			h.Attributes[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query host attributes: %w", err)
	}

	return hosts, nil
}

package catalog

import (
	"context"
	"fmt"

	"github.com/metorial/tattr/internal/logger"
	"github.com/metorial/tattr/internal/models"
)

type Tags struct {
	c *Catalog
}

func (t *Tags) Add(ctx context.Context, name string) error {
	err := t.c.withTx(ctx, func(tx *txn) error {
		_, err := tagEntity.insert(tx, name)
		return err
	})
	if err == nil {
		logger.Debugw("Added tag", "tag", name)
	}
	return err
}

// Remove deletes the tag. While hosts carry it the call fails with an
// *InUseError unless force is set, in which case the tag is unlinked from
// every host first.
func (t *Tags) Remove(ctx context.Context, name string, force bool) error {
	err := t.c.withTx(ctx, func(tx *txn) error {
		return removeReferenced(tx, tagEntity, hostTags, name, force)
	})
	if err == nil {
		logger.Debugw("Removed tag", "tag", name, "force", force)
	}
	return err
}

func (t *Tags) Rename(ctx context.Context, oldName, newName string) error {
	return t.c.withTx(ctx, func(tx *txn) error {
		return tagEntity.rename(tx, oldName, newName)
	})
}

func (t *Tags) Exists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := t.c.withTx(ctx, func(tx *txn) error {
		var err error
		ok, err = tagEntity.exists(tx, name)
		return err
	})
	return ok, err
}

func (t *Tags) Names(ctx context.Context) ([]string, error) {
	return withNames(ctx, t.c, tagEntity)
}

func (t *Tags) Get(ctx context.Context, name string) (*models.Tag, error) {
	var tag *models.Tag
	err := t.c.withTx(ctx, func(tx *txn) error {
		id, err := tagEntity.id(tx, name)
		if err != nil {
			return err
		}
		hosts, err := tx.column(`SELECT h.hostname FROM hosts h
			JOIN host_tags ht ON ht.host_id = h.id
			WHERE ht.tag_id = ?
			ORDER BY h.hostname`, id)
		if err != nil {
			return fmt.Errorf("query tag hosts: %w", err)
		}
		tag = &models.Tag{ID: id, Name: name, Hosts: hosts}
		return nil
	})
	return tag, err
}

func (t *Tags) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := t.c.withTx(ctx, func(tx *txn) error {
		rows, err := tx.query(`SELECT t.id, t.tagname, h.hostname FROM tags t
			LEFT JOIN host_tags ht ON ht.tag_id = t.id
			LEFT JOIN hosts h ON h.id = ht.host_id
			ORDER BY t.tagname, h.hostname`)
		if err != nil {
			return fmt.Errorf("query tags: %w", err)
		}
		defer rows.Close()

		tags = []models.Tag{}
		for rows.Next() {
			var id int64
			var name string
			var host *string
			if err := rows.Scan(&id, &name, &host); err != nil {
				return fmt.Errorf("scan tag: %w", err)
			}
			if len(tags) == 0 || tags[len(tags)-1].ID != id {
				tags = append(tags, models.Tag{ID: id, Name: name, Hosts: []string{}})
			}
			if host != nil {
				last := &tags[len(tags)-1]
				last.Hosts = append(last.Hosts, *host)
			}
		}
		return rows.Err()
	})
	return tags, err
}

package catalog

import (
	"context"
	"fmt"

	"github.com/metorial/tattr/internal/logger"
	"github.com/metorial/tattr/internal/models"
)

type Attributes struct {
	c *Catalog
}

func (a *Attributes) Add(ctx context.Context, name string) error {
	err := a.c.withTx(ctx, func(tx *txn) error {
		_, err := attributeEntity.insert(tx, name)
		return err
	})
	if err == nil {
		logger.Debugw("Added attribute", "attribute", name)
	}
	return err
}

// Remove deletes the attribute, with the same in-use rules as Tags.Remove.
func (a *Attributes) Remove(ctx context.Context, name string, force bool) error {
	err := a.c.withTx(ctx, func(tx *txn) error {
		return removeReferenced(tx, attributeEntity, hostAttributes, name, force)
	})
	if err == nil {
		logger.Debugw("Removed attribute", "attribute", name, "force", force)
	}
	return err
}

func (a *Attributes) Rename(ctx context.Context, oldName, newName string) error {
	return a.c.withTx(ctx, func(tx *txn) error {
		return attributeEntity.rename(tx, oldName, newName)
	})
}

func (a *Attributes) Exists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := a.c.withTx(ctx, func(tx *txn) error {
		var err error
		ok, err = attributeEntity.exists(tx, name)
		return err
	})
	return ok, err
}

func (a *Attributes) Names(ctx context.Context) ([]string, error) {
	return withNames(ctx, a.c, attributeEntity)
}

func (a *Attributes) Get(ctx context.Context, name string) (*models.Attribute, error) {
	var attr *models.Attribute
	err := a.c.withTx(ctx, func(tx *txn) error {
		id, err := attributeEntity.id(tx, name)
		if err != nil {
			return err
		}

		rows, err := tx.query(`SELECT h.hostname, ha.value FROM hosts h
			JOIN host_attributes ha ON ha.host_id = h.id
			WHERE ha.attribute_id = ?`, id)
		if err != nil {
			return fmt.Errorf("query attribute values: %w", err)
		}
		defer rows.Close()

		attr = &models.Attribute{ID: id, Name: name, Values: map[string]string{}}
		for rows.Next() {
			var host, value string
			if err := rows.Scan(&host, &value); err != nil {
				return fmt.Errorf("scan attribute value: %w", err)
			}
			attr.Values[host] = value
		}
		return rows.Err()
	})
	return attr, err
}

func (a *Attributes) List(ctx context.Context) ([]models.Attribute, error) {
	var attrs []models.Attribute
	err := a.c.withTx(ctx, func(tx *txn) error {
		rows, err := tx.query(`SELECT a.id, a.attrname, h.hostname, ha.value FROM attributes a
			LEFT JOIN host_attributes ha ON ha.attribute_id = a.id
			LEFT JOIN hosts h ON h.id = ha.host_id
			ORDER BY a.attrname`)
		if err != nil {
			return fmt.Errorf("query attributes: %w", err)
		}
		defer rows.Close()

		attrs = []models.Attribute{}
		for rows.Next() {
			var id int64
			var name string
			var host, value *string
			if err := rows.Scan(&id, &name, &host, &value); err != nil {
				return fmt.Errorf("scan attribute: %w", err)
			}
			if len(attrs) == 0 || attrs[len(attrs)-1].ID != id {
				attrs = append(attrs, models.Attribute{ID: id, Name: name, Values: map[string]string{}})
			}
			if host != nil && value != nil {
				attrs[len(attrs)-1].Values[*host] = *value
			}
		}
		return rows.Err()
	})
	return attrs, err
}

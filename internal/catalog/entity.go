package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Collection is the contract shared by the host, tag and attribute
// repositories.
type Collection interface {
	Add(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	Rename(ctx context.Context, oldName, newName string) error
	Names(ctx context.Context) ([]string, error)
}

var (
	_ Collection = (*Hosts)(nil)
	_ Collection = (*Tags)(nil)
	_ Collection = (*Attributes)(nil)
)

// entity describes a table of uniquely named rows.
type entity struct {
	kind   Kind
	table  string
	column string
}

var (
	hostEntity      = entity{kind: KindHost, table: "hosts", column: "hostname"}
	tagEntity       = entity{kind: KindTag, table: "tags", column: "tagname"}
	attributeEntity = entity{kind: KindAttribute, table: "attributes", column: "attrname"}
)

func (e entity) id(tx *txn, name string) (int64, error) {
	var id int64
	err := tx.queryRow(fmt.Sprintf(`SELECT id FROM %s WHERE %s = ?`, e.table, e.column), name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &NotFoundError{Kind: e.kind, Name: name}
	}
	if err != nil {
		return 0, fmt.Errorf("look up %s %s: %w", e.kind, name, err)
	}
	return id, nil
}

func (e entity) insert(tx *txn, name string) (int64, error) {
	if name == "" {
		return 0, emptyName(e.kind)
	}

	var id int64
	err := tx.queryRow(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?) RETURNING id`, e.table, e.column), name).Scan(&id)
	if tx.isUniqueViolation(err) {
		return 0, &AlreadyExistsError{Kind: e.kind, Name: name}
	}
	if err != nil {
		return 0, fmt.Errorf("insert %s %s: %w", e.kind, name, err)
	}
	return id, nil
}

// ensure returns the id of name, inserting it when missing. A concurrent
// insert of the same name is not a conflict.
func (e entity) ensure(tx *txn, name string) (int64, error) {
	if name == "" {
		return 0, emptyName(e.kind)
	}

	_, err := tx.exec(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?) ON CONFLICT (%s) DO NOTHING`,
		e.table, e.column, e.column), name)
	if err != nil {
		return 0, fmt.Errorf("ensure %s %s: %w", e.kind, name, err)
	}
	return e.id(tx, name)
}

func (e entity) rename(tx *txn, oldName, newName string) error {
	if newName == "" {
		return emptyName(e.kind)
	}

	id, err := e.id(tx, oldName)
	if err != nil {
		return err
	}

	_, err = tx.exec(fmt.Sprintf(`UPDATE %s SET %s = ? WHERE id = ?`, e.table, e.column), newName, id)
	if tx.isUniqueViolation(err) {
		return &AlreadyExistsError{Kind: e.kind, Name: newName}
	}
	if err != nil {
		return fmt.Errorf("rename %s %s: %w", e.kind, oldName, err)
	}
	return nil
}

func (e entity) exists(tx *txn, name string) (bool, error) {
	_, err := e.id(tx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (e entity) names(tx *txn) ([]string, error) {
	names, err := tx.column(fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, e.column, e.table, e.column))
	if err != nil {
		return nil, fmt.Errorf("list %s names: %w", e.kind, err)
	}
	return names, nil
}

func (e entity) delete(tx *txn, id int64) error {
	if _, err := tx.exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, e.table), id); err != nil {
		return fmt.Errorf("delete %s: %w", e.kind, err)
	}
	return nil
}

type association struct {
	table  string
	column string
}

var (
	hostTags       = association{table: "host_tags", column: "tag_id"}
	hostAttributes = association{table: "host_attributes", column: "attribute_id"}
)

func (a association) count(tx *txn, id int64) (int, error) {
	var n int
	err := tx.queryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = ?`, a.table, a.column), id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", a.table, err)
	}
	return n, nil
}

func (a association) deleteFor(tx *txn, column string, id int64) error {
	if _, err := tx.exec(fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, a.table, column), id); err != nil {
		return fmt.Errorf("delete %s: %w", a.table, err)
	}
	return nil
}

// removeReferenced deletes a tag or attribute, refusing while hosts still
// reference it unless force is set.
func removeReferenced(tx *txn, e entity, a association, name string, force bool) error {
	id, err := e.id(tx, name)
	if err != nil {
		return err
	}

	n, err := a.count(tx, id)
	if err != nil {
		return err
	}
	if n > 0 && !force {
		return &InUseError{Kind: e.kind, Name: name, Count: n}
	}

	if err := a.deleteFor(tx, a.column, id); err != nil {
		return err
	}
	return e.delete(tx, id)
}

func withNames(ctx context.Context, c *Catalog, e entity) ([]string, error) {
	var names []string
	err := c.withTx(ctx, func(tx *txn) error {
		var err error
		names, err = e.names(tx)
		return err
	})
	return names, err
}

package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/metorial/tattr/internal/models"
)

type PredicateKind string

const (
	PredicateTag  PredicateKind = "tag"
	PredicateAttr PredicateKind = "attr"
)

// Predicate restricts a host listing. Value is only consulted for attr
// predicates with HasValue set.
type Predicate struct {
	Kind     PredicateKind
	Name     string
	Value    string
	HasValue bool
}

func (p Predicate) String() string {
	if p.HasValue {
		return fmt.Sprintf("%s:%s=%s", p.Kind, p.Name, p.Value)
	}
	return fmt.Sprintf("%s:%s", p.Kind, p.Name)
}

// ParseAttrFilter turns "name" or "name=value" into an attr predicate.
func ParseAttrFilter(s string) Predicate {
	name, value, ok := strings.Cut(s, "=")
	return Predicate{Kind: PredicateAttr, Name: name, Value: value, HasValue: ok}
}

// HostQuery is an immutable set of predicates over the hosts of a catalog.
// Every filter method returns a new HostQuery and leaves the receiver as it
// was, so a query value can be shared and listed any number of times.
type HostQuery struct {
	hosts *Hosts
	preds []Predicate
}

func (h *Hosts) Filter() HostQuery {
	return HostQuery{hosts: h}
}

func (h *Hosts) FilterTag(name string) HostQuery {
	return h.Filter().FilterTag(name)
}

func (h *Hosts) FilterAttr(name string) HostQuery {
	return h.Filter().FilterAttr(name)
}

func (h *Hosts) FilterAttrValue(name, value string) HostQuery {
	return h.Filter().FilterAttrValue(name, value)
}

func (q HostQuery) FilterTag(name string) HostQuery {
	return q.Where(Predicate{Kind: PredicateTag, Name: name})
}

func (q HostQuery) FilterAttr(name string) HostQuery {
	return q.Where(Predicate{Kind: PredicateAttr, Name: name})
}

func (q HostQuery) FilterAttrValue(name, value string) HostQuery {
	return q.Where(Predicate{Kind: PredicateAttr, Name: name, Value: value, HasValue: true})
}

// Where adds p to the query. Adding a predicate already present is a no-op.
func (q HostQuery) Where(p Predicate) HostQuery {
	if !p.HasValue {
		p.Value = ""
	}
	for _, existing := range q.preds {
		if existing == p {
			return q
		}
	}

	preds := make([]Predicate, len(q.preds), len(q.preds)+1)
	copy(preds, q.preds)
	return HostQuery{hosts: q.hosts, preds: append(preds, p)}
}

func (q HostQuery) Predicates() []Predicate {
	out := make([]Predicate, len(q.preds))
	copy(out, q.preds)
	return out
}

// List returns snapshots of the hosts satisfying every predicate, ordered by
// hostname.
func (q HostQuery) List(ctx context.Context) ([]models.Host, error) {
	where, args, err := q.where()
	if err != nil {
		return nil, err
	}

	var hosts []models.Host
	err = q.hosts.c.withTx(ctx, func(tx *txn) error {
		var err error
		hosts, err = loadHosts(tx, where, args)
		return err
	})
	return hosts, err
}

func (q HostQuery) where() (string, []any, error) {
	if len(q.preds) == 0 {
		return "1 = 1", nil, nil
	}

	conds := make([]string, 0, len(q.preds))
	var args []any
	for _, p := range q.preds {
		switch p.Kind {
		case PredicateTag:
			conds = append(conds, `h.id IN (SELECT ht.host_id FROM host_tags ht
				JOIN tags t ON t.id = ht.tag_id WHERE t.tagname = ?)`)
			args = append(args, p.Name)
		case PredicateAttr:
			cond := `h.id IN (SELECT ha.host_id FROM host_attributes ha
				JOIN attributes a ON a.id = ha.attribute_id WHERE a.attrname = ?`
			args = append(args, p.Name)
			if p.HasValue {
				cond += ` AND ha.value = ?`
				args = append(args, p.Value)
			}
			conds = append(conds, cond+`)`)
		default:
			return "", nil, fmt.Errorf("unknown predicate kind %q", p.Kind)
		}
	}
	return strings.Join(conds, " AND "), args, nil
}

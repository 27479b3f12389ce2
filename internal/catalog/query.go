package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Op is the set operation a query term applies to the running result.
type Op int

const (
	// OpBase seeds the result with the hosts carrying the tag.
	OpBase Op = iota
	OpUnion
	OpIntersect
	OpDifference
)

func (o Op) String() string {
	switch o {
	case OpBase:
		return "base"
	case OpUnion:
		return "union"
	case OpIntersect:
		return "intersect"
	case OpDifference:
		return "difference"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

type Term struct {
	Op  Op
	Tag string
}

// ParseQuery classifies query tokens. A leading bare tag becomes the base
// term; "+tag" is a union, "-tag" a difference and any later bare tag an
// intersection. When the first token starts with + or - there is no base
// term and evaluation starts from every host.
func ParseQuery(tokens []string) ([]Term, error) {
	terms := make([]Term, 0, len(tokens))
	for i, tok := range tokens {
		var term Term
		switch {
		case strings.HasPrefix(tok, "+"):
			term = Term{Op: OpUnion, Tag: tok[1:]}
		case strings.HasPrefix(tok, "-"):
			term = Term{Op: OpDifference, Tag: tok[1:]}
		case i == 0:
			term = Term{Op: OpBase, Tag: tok}
		default:
			term = Term{Op: OpIntersect, Tag: tok}
		}
		if term.Tag == "" {
			return nil, &InvalidQueryError{Token: tok, Reason: "missing tag name"}
		}
		terms = append(terms, term)
	}
	return terms, nil
}

// SplitQuery breaks a textual query such as "web +db -staging" into tokens.
func SplitQuery(expr string) []string {
	return strings.Fields(expr)
}

// Evaluate applies terms strictly left to right. all is the set of every
// hostname and tagged returns the hostnames carrying a tag.
func Evaluate(terms []Term, all mapset.Set[string], tagged func(tag string) (mapset.Set[string], error)) (mapset.Set[string], error) {
	result := all
	for _, term := range terms {
		hosts, err := tagged(term.Tag)
		if err != nil {
			return nil, err
		}
		switch term.Op {
		case OpBase:
			result = hosts
		case OpUnion:
			result = result.Union(hosts)
		case OpIntersect:
			result = result.Intersect(hosts)
		case OpDifference:
			result = result.Difference(hosts)
		default:
			return nil, fmt.Errorf("unknown query op %s", term.Op)
		}
	}
	return result, nil
}

// Query resolves query tokens to the set of matching hostnames. Tags that do
// not exist match no hosts.
func (h *Hosts) Query(ctx context.Context, tokens []string) (mapset.Set[string], error) {
	terms, err := ParseQuery(tokens)
	if err != nil {
		return nil, err
	}

	var result mapset.Set[string]
	err = h.c.withTx(ctx, func(tx *txn) error {
		all := mapset.NewSet[string]()
		if len(terms) == 0 || terms[0].Op != OpBase {
			names, err := hostEntity.names(tx)
			if err != nil {
				return err
			}
			all.Append(names...)
		}

		var err error
		result, err = Evaluate(terms, all, func(tag string) (mapset.Set[string], error) {
			names, err := tx.column(`SELECT h.hostname FROM hosts h
				JOIN host_tags ht ON ht.host_id = h.id
				JOIN tags t ON t.id = ht.tag_id
				WHERE t.tagname = ?`, tag)
			if err != nil {
				return nil, fmt.Errorf("query hosts tagged %s: %w", tag, err)
			}
			return mapset.NewSet(names...), nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *Hosts) QueryNames(ctx context.Context, tokens []string) ([]string, error) {
	set, err := h.Query(ctx, tokens)
	if err != nil {
		return nil, err
	}
	names := set.ToSlice()
	slices.Sort(names)
	return names, nil
}

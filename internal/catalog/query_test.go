package catalog

import (
	"context"
	"errors"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []Term
	}{
		{name: "empty", tokens: nil, want: []Term{}},
		{name: "base", tokens: []string{"web"}, want: []Term{{OpBase, "web"}}},
		{
			name:   "base then ops",
			tokens: []string{"web", "+db", "-staging", "prod"},
			want:   []Term{{OpBase, "web"}, {OpUnion, "db"}, {OpDifference, "staging"}, {OpIntersect, "prod"}},
		},
		{
			name:   "leading union",
			tokens: []string{"+a", "-b", "c"},
			want:   []Term{{OpUnion, "a"}, {OpDifference, "b"}, {OpIntersect, "c"}},
		},
		{name: "leading difference", tokens: []string{"-staging"}, want: []Term{{OpDifference, "staging"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuery(tt.tokens)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQueryRejectsBareOperators(t *testing.T) {
	for _, tokens := range [][]string{{"+"}, {"web", "-"}, {""}, {"web", ""}} {
		_, err := ParseQuery(tokens)
		require.ErrorIs(t, err, ErrInvalidQuery, "%q", tokens)

		var invalid *InvalidQueryError
		assert.True(t, errors.As(err, &invalid))
	}
}

func TestEvaluate(t *testing.T) {
	all := mapset.NewSet("a1", "a2", "b1", "c1")
	index := map[string]mapset.Set[string]{
		"a": mapset.NewSet("a1", "a2"),
		"b": mapset.NewSet("b1", "a2"),
		"c": mapset.NewSet("c1", "a1"),
	}
	tagged := func(tag string) (mapset.Set[string], error) {
		if s, ok := index[tag]; ok {
			return s, nil
		}
		return mapset.NewSet[string](), nil
	}

	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{name: "no terms is everything", tokens: nil, want: []string{"a1", "a2", "b1", "c1"}},
		{name: "base", tokens: []string{"a"}, want: []string{"a1", "a2"}},
		{name: "union", tokens: []string{"a", "+c"}, want: []string{"a1", "a2", "c1"}},
		{name: "intersect", tokens: []string{"a", "b"}, want: []string{"a2"}},
		{name: "difference", tokens: []string{"a", "-b"}, want: []string{"a1"}},
		{name: "leading difference starts from all", tokens: []string{"-a"}, want: []string{"b1", "c1"}},
		{name: "left to right", tokens: []string{"+a", "-b", "c"}, want: []string{"a1", "c1"}},
		{name: "unknown tag base", tokens: []string{"zzz", "+a"}, want: []string{"a1", "a2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms, err := ParseQuery(tt.tokens)
			require.NoError(t, err)

			got, err := Evaluate(terms, all, tagged)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got.ToSlice())
		})
	}
}

func TestEvaluatePropagatesLookupErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Evaluate([]Term{{OpBase, "a"}}, mapset.NewSet[string](), func(string) (mapset.Set[string], error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestHostsQuery(t *testing.T) {
	forEachStore(t, func(t *testing.T, c *Catalog) {
		seed(t, c,
			[]string{"web1", "web2", "db1", "stage1", "bare"},
			[]string{"web", "db", "staging", "a", "b", "c"},
			map[string][]string{
				"web1":   {"web", "a"},
				"web2":   {"web", "staging", "c"},
				"db1":    {"db", "a", "c"},
				"stage1": {"staging", "b"},
			})

		tests := []struct {
			name   string
			tokens []string
			want   []string
		}{
			{name: "empty query lists every host", tokens: []string{}, want: []string{"bare", "db1", "stage1", "web1", "web2"}},
			{name: "single tag", tokens: []string{"web"}, want: []string{"web1", "web2"}},
			{name: "union", tokens: []string{"web", "+db"}, want: []string{"db1", "web1", "web2"}},
			{name: "difference", tokens: []string{"web", "-staging"}, want: []string{"web1"}},
			{name: "leading operator starts from all", tokens: []string{"+a", "-b", "c"}, want: []string{"db1", "web2"}},
			{name: "unknown tag matches nothing", tokens: []string{"ghost"}, want: []string{}},
			{name: "exclude from all", tokens: []string{"-web", "-db"}, want: []string{"bare", "stage1"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := c.Hosts().QueryNames(context.Background(), tt.tokens)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})
}

func TestHostsQueryInvalid(t *testing.T) {
	forEachStore(t, func(t *testing.T, c *Catalog) {
		_, err := c.Hosts().Query(context.Background(), []string{"web", "+"})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})
}

func TestSplitQuery(t *testing.T) {
	assert.Equal(t, []string{"web", "+db", "-staging"}, SplitQuery("  web +db\t-staging "))
	assert.Empty(t, SplitQuery(""))
}

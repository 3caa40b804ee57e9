package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/raido/internal/models"
)

var productSpecs = []FilterSpec{
	{Param: "category", Field: "category", Op: OpEq},
	{Param: "price_min", Field: "price", Op: OpGte},
	{Param: "price_max", Field: "price", Op: OpLte},
}

func TestBuildFilter_Empty(t *testing.T) {
	p := BuildFilter(map[string]string{}, productSpecs, []string{"name"})
	assert.Empty(t, p.Conditions)
	assert.Nil(t, p.Text)
	assert.Equal(t, []models.State{models.StateActive}, p.States)
}

func TestBuildFilter_Range(t *testing.T) {
	p := BuildFilter(map[string]string{"price_min": "10"}, productSpecs, nil)
	require.Len(t, p.Conditions, 1)
	assert.Equal(t, Condition{Field: "price", Op: OpGte, Value: 10.0}, p.Conditions[0])

	p = BuildFilter(map[string]string{"price_max": "20.5"}, productSpecs, nil)
	require.Len(t, p.Conditions, 1)
	assert.Equal(t, Condition{Field: "price", Op: OpLte, Value: 20.5}, p.Conditions[0])

	p = BuildFilter(map[string]string{"price_min": "10", "price_max": "20"}, productSpecs, nil)
	assert.ElementsMatch(t, []Condition{
		{Field: "price", Op: OpGte, Value: 10.0},
		{Field: "price", Op: OpLte, Value: 20.0},
	}, p.Conditions)
}

func TestBuildFilter_NonNumericRangeIgnored(t *testing.T) {
	for _, raw := range []string{"cheap", "NaN", "nan", "Inf", "-Infinity", "1e999"} {
		p := BuildFilter(map[string]string{"price_min": raw, "price_max": raw}, productSpecs, nil)
		assert.Empty(t, p.Conditions, "bound %q", raw)
	}
}

func TestBuildFilter_UnrecognizedIgnored(t *testing.T) {
	p := BuildFilter(map[string]string{"$where": "1", "owner": "x", "category": "c1"}, productSpecs, nil)
	require.Len(t, p.Conditions, 1)
	assert.Equal(t, "category", p.Conditions[0].Field)
	assert.Equal(t, "c1", p.Conditions[0].Value)
}

func TestBuildFilter_SearchComposes(t *testing.T) {
	p := BuildFilter(map[string]string{"search": " lamp ", "category": "c1"}, productSpecs, []string{"name", "description"})
	require.NotNil(t, p.Text)
	assert.Equal(t, "lamp", p.Text.Query)
	assert.Equal(t, []string{"name", "description"}, p.Text.Fields)
	assert.Len(t, p.Conditions, 1)
}

func TestBuildFilter_SearchWithoutTextFields(t *testing.T) {
	p := BuildFilter(map[string]string{"search": "lamp"}, productSpecs, nil)
	assert.Nil(t, p.Text)
}

func TestBuildFilter_IncludeInactive(t *testing.T) {
	p := BuildFilter(map[string]string{"includeInactive": "true"}, nil, nil)
	assert.Equal(t, []models.State{models.StateActive, models.StateInactive}, p.States)

	p = BuildFilter(map[string]string{"includeInactive": "nope"}, nil, nil)
	assert.Equal(t, []models.State{models.StateActive}, p.States)
}

func TestResolveSort(t *testing.T) {
	sortable := []string{"price", "name"}
	tests := []struct {
		name    string
		params  map[string]string
		hasText bool
		want    Sort
	}{
		{"omitted", nil, false, DefaultSort},
		{"bare field ascending", map[string]string{"sort": "price"}, false, Sort{Field: "price"}},
		{"dash descending", map[string]string{"sort": "-price"}, false, Sort{Field: "price", Desc: true}},
		{"colon direction", map[string]string{"sort": "name:desc"}, false, Sort{Field: "name", Desc: true}},
		{"space direction", map[string]string{"sort": "name asc"}, false, Sort{Field: "name"}},
		{"first of list", map[string]string{"sort": "name,-price"}, false, Sort{Field: "name"}},
		{"unknown field", map[string]string{"sort": "password"}, false, DefaultSort},
		{"timestamps always sortable", map[string]string{"sort": "updatedAt"}, false, Sort{Field: "updatedAt"}},
		{"legacy defaults desc", map[string]string{"sortBy": "price"}, false, Sort{Field: "price", Desc: true}},
		{"legacy asc", map[string]string{"sortBy": "price", "sortOrder": "asc"}, false, Sort{Field: "price"}},
		{"relevance with text", map[string]string{"sort": "relevance"}, true, Sort{ByRelevance: true}},
		{"relevance without text", map[string]string{"sort": "relevance"}, false, DefaultSort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveSort(tt.params, sortable, tt.hasText))
		})
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		page, limit string
		want        Window
	}{
		{"", "", Window{Page: 1, Limit: 10, Offset: 0}},
		{"2", "5", Window{Page: 2, Limit: 5, Offset: 5}},
		{"abc", "xyz", Window{Page: 1, Limit: 10, Offset: 0}},
		{"0", "0", Window{Page: 1, Limit: 1, Offset: 0}},
		{"-3", "-1", Window{Page: 1, Limit: 1, Offset: 0}},
		{"3", "1000", Window{Page: 3, Limit: 50, Offset: 100}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Paginate(tt.page, tt.limit, 10, 50), "page=%q limit=%q", tt.page, tt.limit)
	}
}

func TestPaginate_HugePageStaysPositive(t *testing.T) {
	for _, limit := range []string{"1", "5", "50"} {
		w := Paginate("2000000000000000000", limit, 10, 50)
		assert.Positive(t, w.Offset, "limit=%s", limit)
		assert.Greater(t, w.Page, 1, "limit=%s", limit)
		assert.Equal(t, (w.Page-1)*w.Limit, w.Offset)
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 3, TotalPages(12, 5))
	assert.Equal(t, 3, TotalPages(11, 5))
}

func TestParams_FirstValue(t *testing.T) {
	got := Params(map[string][]string{"a": {"1", "2"}, "b": {}})
	assert.Equal(t, map[string]string{"a": "1"}, got)
}

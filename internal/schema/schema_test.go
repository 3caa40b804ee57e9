package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	require.Len(t, r.Kinds(), 5)

	k, ok := r.ByPlural("categories")
	require.True(t, ok)
	assert.Equal(t, models.KindCategory, k.Name)

	_, ok = r.Get("invoice")
	assert.False(t, ok)
}

func TestSanitizeDropsUndeclaredAndFillsDefaults(t *testing.T) {
	k := Project()
	out := k.Sanitize(map[string]any{
		"name":      "  Apollo ",
		"owner":     "u1",
		"id":        "spoofed",
		"state":     "removed",
		"unknown":   true,
		"createdAt": "2020-01-01",
	}, true)

	assert.Equal(t, "Apollo", out["name"])
	assert.Equal(t, "planning", out["status"])
	assert.Equal(t, []any{}, out["teamMembers"])
	assert.NotContains(t, out, "id")
	assert.NotContains(t, out, "state")
	assert.NotContains(t, out, "unknown")
	assert.NotContains(t, out, "createdAt")
}

func TestSanitizeNoDefaultsOnUpdate(t *testing.T) {
	out := Task().Sanitize(map[string]any{"title": "x"}, false)
	assert.Equal(t, map[string]any{"title": "x"}, out)
}

func TestSanitizeTeamMemberRoleDefault(t *testing.T) {
	out := Project().Sanitize(map[string]any{
		"teamMembers": []any{map[string]any{"user": "u1"}},
	}, false)
	members := out["teamMembers"].([]any)
	require.Len(t, members, 1)
	assert.Equal(t, "developer", members[0].(map[string]any)["role"])
}

func TestSanitizeEmptyRefBecomesNil(t *testing.T) {
	out := Category().Sanitize(map[string]any{"name": "a", "parentCategory": ""}, true)
	assert.Nil(t, out["parentCategory"])
	assert.Contains(t, out, "parentCategory")
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	_, fields := apperr.Details(err)
	return fields
}

func TestValidateUser(t *testing.T) {
	k := User()
	require.NoError(t, k.Validate(map[string]any{"username": "ada", "email": "ada@example.com"}))

	fields := fieldErrors(t, k.Validate(map[string]any{"username": "ada", "email": "not-an-email"}))
	assert.Contains(t, fields, "email")

	fields = fieldErrors(t, k.Validate(map[string]any{"email": "ada@example.com"}))
	assert.Contains(t, fields, "username")
}

func TestValidateProduct(t *testing.T) {
	k := Product()
	valid := map[string]any{
		"name": "Lamp", "description": "A warm desk lamp", "price": 0.0,
		"sku": "L-1", "stock": 3.0, "category": "c1",
	}
	require.NoError(t, k.Validate(valid))

	bad := map[string]any{
		"name": "La", "description": "short", "price": -1.0,
		"sku": "L-1", "category": "c1",
	}
	fields := fieldErrors(t, k.Validate(bad))
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "description")
	assert.Contains(t, fields, "price")

	fields = fieldErrors(t, k.Validate(map[string]any{
		"name": "Lamp", "description": "A warm desk lamp", "price": "cheap",
		"sku": "L-1", "category": "c1",
	}))
	assert.Equal(t, "must be a number", fields["price"])
}

func TestValidateEnumAndNested(t *testing.T) {
	k := Project()
	fields := fieldErrors(t, k.Validate(map[string]any{
		"name":   "Apollo",
		"owner":  "u1",
		"status": "dreaming",
		"teamMembers": []any{
			map[string]any{"user": "u2", "role": "developer"},
			map[string]any{"role": "astronaut"},
		},
	}))
	assert.Contains(t, fields, "status")
	assert.Contains(t, fields, "teamMembers.1.user")
	assert.Contains(t, fields, "teamMembers.1.role")
	assert.NotContains(t, fields, "teamMembers.0.user")
}

func TestValidateProjectDateOrder(t *testing.T) {
	k := Project()
	base := func(start, end string) map[string]any {
		return map[string]any{"name": "Apollo", "owner": "u1", "startDate": start, "endDate": end}
	}
	require.NoError(t, k.Validate(base("2024-01-01", "2024-01-01")))
	require.NoError(t, k.Validate(base("2024-01-01", "2024-06-30T12:00:00Z")))

	err := k.Validate(base("2024-06-01", "2024-01-01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Contains(t, err.Error(), "end date precedes start date")

	fields := fieldErrors(t, k.Validate(base("yesterday", "2024-01-01")))
	assert.Contains(t, fields, "startDate")
}

func TestVisibility(t *testing.T) {
	assert.False(t, User().VisibleByID(models.StateInactive))
	assert.True(t, Project().VisibleByID(models.StateInactive))
	assert.False(t, Project().Referenceable(models.StateInactive))
	assert.True(t, Task().VisibleByID(models.StateActive))
	assert.False(t, Task().VisibleByID(models.StateRemoved))
}

func TestDescribe(t *testing.T) {
	infos := Default().Describe()
	require.Len(t, infos, 5)
	assert.Equal(t, "category", infos[0].Name)

	var project KindInfo
	for _, info := range infos {
		if info.Name == "project" {
			project = info
		}
	}
	assert.Equal(t, "soft", project.Delete)
	assert.Contains(t, project.Filters, "budget_min")
	assert.Contains(t, project.Filters, "search")

	for _, f := range project.Fields {
		switch f.Name {
		case "owner":
			assert.Equal(t, "user", f.Ref)
		case "teamMembers":
			require.Len(t, f.Element, 2)
			assert.Equal(t, "user", f.Element[0].Ref)
			assert.Empty(t, f.Element[1].Ref)
		}
	}
}

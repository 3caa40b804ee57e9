package schema

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
)

// Registry indexes kind descriptions by name and by plural path segment.
type Registry struct {
	byName   map[models.Kind]*Kind
	byPlural map[string]*Kind
}

// NewRegistry builds a registry from kinds. It panics on duplicates or on
// references to unregistered kinds, since kinds are static.
func NewRegistry(kinds ...*Kind) *Registry {
	r := &Registry{
		byName:   make(map[models.Kind]*Kind, len(kinds)),
		byPlural: make(map[string]*Kind, len(kinds)),
	}
	for _, k := range kinds {
		if _, dup := r.byName[k.Name]; dup {
			panic(fmt.Sprintf("schema: duplicate kind %q", k.Name))
		}
		r.byName[k.Name] = k
		r.byPlural[k.Plural] = k
	}
	for _, k := range kinds {
		for _, ref := range k.References {
			if _, ok := r.byName[ref.Kind]; !ok {
				panic(fmt.Sprintf("schema: %s.%s references unknown kind %q", k.Name, ref.Field, ref.Kind))
			}
		}
	}
	return r
}

// Default returns the registry of the five built-in kinds.
func Default() *Registry {
	return NewRegistry(User(), Project(), Task(), Product(), Category())
}

// Get returns the kind called name.
func (r *Registry) Get(name models.Kind) (*Kind, bool) {
	k, ok := r.byName[name]
	return k, ok
}

// ByPlural returns the kind served under the plural path segment.
func (r *Registry) ByPlural(plural string) (*Kind, bool) {
	k, ok := r.byPlural[plural]
	return k, ok
}

// Kinds returns all kinds ordered by name.
func (r *Registry) Kinds() []*Kind {
	out := make([]*Kind, 0, len(r.byName))
	for _, k := range r.byName {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var (
	projectStatuses = []string{"planning", "active", "on-hold", "completed", "cancelled"}
	teamRoles       = []string{"manager", "developer", "designer", "tester"}
	taskStatuses    = []string{"pending", "active", "completed", "cancelled"}
	taskPriorities  = []string{"low", "medium", "high", "urgent"}
)

// User describes people that own projects and are assigned tasks.
func User() *Kind {
	return &Kind{
		Name:   models.KindUser,
		Plural: "users",
		Fields: []Field{
			{Name: "username", Type: TypeString, Required: true, Trim: true,
				Rules: []validation.Rule{validation.Length(1, 64)}},
			{Name: "email", Type: TypeString, Required: true, Trim: true,
				Rules: []validation.Rule{is.EmailFormat}},
			{Name: "name", Type: TypeString, Trim: true},
		},
		Unique:           []string{"username", "email"},
		Filters:          []query.FilterSpec{{Param: "email", Field: "email", Op: query.OpEq}},
		SortFields:       []string{"username", "email", "name"},
		Delete:           SoftDelete,
		HideInactiveByID: true,
	}
}

// Project groups tasks under an owner and a team.
func Project() *Kind {
	return &Kind{
		Name:   models.KindProject,
		Plural: "projects",
		Fields: []Field{
			{Name: "name", Type: TypeString, Required: true, Trim: true},
			{Name: "description", Type: TypeString},
			{Name: "owner", Type: TypeRef, Required: true},
			{Name: "teamMembers", Type: TypeRefList, Default: []any{}, Element: []Field{
				{Name: "user", Type: TypeRef, Required: true},
				{Name: "role", Type: TypeEnum, Enum: teamRoles, Default: "developer"},
			}},
			{Name: "status", Type: TypeEnum, Enum: projectStatuses, Default: "planning"},
			{Name: "startDate", Type: TypeDate},
			{Name: "endDate", Type: TypeDate},
			{Name: "budget", Type: TypeNumber, Rules: []validation.Rule{validation.Min(0.0)}},
			{Name: "client", Type: TypeString, Trim: true},
		},
		Filters: []query.FilterSpec{
			{Param: "status", Field: "status", Op: query.OpEq},
			{Param: "owner", Field: "owner", Op: query.OpEq},
			{Param: "budget_min", Field: "budget", Op: query.OpGte},
			{Param: "budget_max", Field: "budget", Op: query.OpLte},
		},
		TextFields: []string{"name", "description"},
		SortFields: []string{"name", "status", "budget", "startDate", "endDate"},
		References: []Reference{
			{Field: "owner", Kind: models.KindUser, Projection: []string{"name", "username", "email"}},
			{Field: "teamMembers", ElemKey: "user", Kind: models.KindUser, Projection: []string{"name", "username", "email"}},
		},
		Delete: SoftDelete,
		Check:  dateOrder("startDate", "endDate"),
	}
}

// Task is a unit of work inside a project.
func Task() *Kind {
	return &Kind{
		Name:   models.KindTask,
		Plural: "tasks",
		Fields: []Field{
			{Name: "title", Type: TypeString, Required: true, Trim: true},
			{Name: "description", Type: TypeString},
			{Name: "status", Type: TypeEnum, Enum: taskStatuses, Default: "pending"},
			{Name: "priority", Type: TypeEnum, Enum: taskPriorities, Default: "medium"},
			{Name: "dueDate", Type: TypeDate},
			{Name: "project", Type: TypeRef, Required: true},
			{Name: "assignedTo", Type: TypeRef},
		},
		Filters: []query.FilterSpec{
			{Param: "status", Field: "status", Op: query.OpEq},
			{Param: "priority", Field: "priority", Op: query.OpEq},
			{Param: "project", Field: "project", Op: query.OpEq},
			{Param: "assignedTo", Field: "assignedTo", Op: query.OpEq},
		},
		TextFields: []string{"title"},
		SortFields: []string{"title", "status", "priority", "dueDate"},
		References: []Reference{
			{Field: "project", Kind: models.KindProject, Projection: []string{"name", "status"}},
			{Field: "assignedTo", Kind: models.KindUser, Projection: []string{"username", "email"}},
		},
		Delete: HardDelete,
	}
}

// Product is a catalog item filed under a category.
func Product() *Kind {
	return &Kind{
		Name:   models.KindProduct,
		Plural: "products",
		Fields: []Field{
			{Name: "name", Type: TypeString, Required: true, Trim: true,
				Rules: []validation.Rule{validation.RuneLength(3, 0)}},
			{Name: "description", Type: TypeString, Required: true, Trim: true,
				Rules: []validation.Rule{validation.RuneLength(10, 0)}},
			{Name: "price", Type: TypeNumber, Required: true, Rules: []validation.Rule{validation.Min(0.0)}},
			{Name: "sku", Type: TypeString, Required: true, Trim: true},
			{Name: "stock", Type: TypeNumber, Default: 0.0, Rules: []validation.Rule{validation.Min(0.0)}},
			{Name: "category", Type: TypeRef, Required: true},
		},
		Unique: []string{"sku"},
		Filters: []query.FilterSpec{
			{Param: "category", Field: "category", Op: query.OpEq},
			{Param: "price_min", Field: "price", Op: query.OpGte},
			{Param: "price_max", Field: "price", Op: query.OpLte},
		},
		TextFields: []string{"name", "description"},
		SortFields: []string{"name", "price", "sku", "stock"},
		References: []Reference{
			{Field: "category", Kind: models.KindCategory, Projection: []string{"name"}},
		},
		Delete:           SoftDelete,
		HideInactiveByID: true,
	}
}

// Category is a node in the product category tree.
func Category() *Kind {
	return &Kind{
		Name:   models.KindCategory,
		Plural: "categories",
		Fields: []Field{
			{Name: "name", Type: TypeString, Required: true, Trim: true},
			{Name: "description", Type: TypeString},
			{Name: "parentCategory", Type: TypeRef},
		},
		Unique:     []string{"name"},
		Filters:    []query.FilterSpec{{Param: "parentCategory", Field: "parentCategory", Op: query.OpEq}},
		SortFields: []string{"name"},
		References: []Reference{
			{Field: "parentCategory", Kind: models.KindCategory, Projection: []string{"name"}, Acyclic: true},
		},
		Delete: HardDelete,
	}
}

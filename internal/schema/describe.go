package schema

// FieldInfo is the public description of a field.
type FieldInfo struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Required bool        `json:"required,omitempty"`
	Enum     []string    `json:"enum,omitempty"`
	Default  any         `json:"default,omitempty"`
	Ref      string      `json:"ref,omitempty"`
	Element  []FieldInfo `json:"element,omitempty"`
}

// KindInfo is the public description of a kind, served to API and MCP clients.
type KindInfo struct {
	Name       string      `json:"name"`
	Plural     string      `json:"plural"`
	Fields     []FieldInfo `json:"fields"`
	Unique     []string    `json:"unique,omitempty"`
	Filters    []string    `json:"filters"`
	Search     []string    `json:"search,omitempty"`
	Sort       []string    `json:"sort"`
	Delete     string      `json:"delete"`
	HideByID   bool        `json:"hideInactiveById"`
	InactiveOK bool        `json:"inactiveReferenceable"`
}

// Describe returns a description of every kind, ordered by name.
func (r *Registry) Describe() []KindInfo {
	kinds := r.Kinds()
	out := make([]KindInfo, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.Describe())
	}
	return out
}

// Describe returns the public description of k.
func (k *Kind) Describe() KindInfo {
	info := KindInfo{
		Name:       string(k.Name),
		Plural:     k.Plural,
		Fields:     describeFields(k, k.Fields, ""),
		Unique:     k.Unique,
		Filters:    make([]string, 0, len(k.Filters)),
		Search:     k.TextFields,
		Sort:       append([]string{"createdAt", "updatedAt"}, k.SortFields...),
		Delete:     k.Delete.String(),
		HideByID:   k.HideInactiveByID,
		InactiveOK: k.InactiveReferenceable,
	}
	for _, f := range k.Filters {
		info.Filters = append(info.Filters, f.Param)
	}
	if k.Searchable() {
		info.Filters = append(info.Filters, "search")
	}
	return info
}

func describeFields(k *Kind, fields []Field, parent string) []FieldInfo {
	out := make([]FieldInfo, 0, len(fields))
	for _, f := range fields {
		fi := FieldInfo{
			Name:     f.Name,
			Type:     f.Type.String(),
			Required: f.Required,
			Enum:     f.Enum,
			Default:  f.Default,
		}
		for _, ref := range k.References {
			switch {
			case parent == "" && ref.Field == f.Name && ref.ElemKey == "":
				fi.Ref = string(ref.Kind)
			case parent != "" && ref.Field == parent && ref.ElemKey == f.Name:
				fi.Ref = string(ref.Kind)
			}
		}
		if len(f.Element) > 0 {
			fi.Element = describeFields(k, f.Element, f.Name)
		}
		out = append(out, fi)
	}
	return out
}

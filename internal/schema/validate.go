package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/apperr"
)

// DateLayouts are the accepted layouts for TypeDate fields.
var DateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate parses a TypeDate value.
func ParseDate(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate checks fields against the kind's declared rules and then its
// cross-field Check. Failures are reported as apperr.ErrInvalidInput with
// one message per offending field path.
func (k *Kind) Validate(fields map[string]any) error {
	err := validation.Validate(fields, validation.Map(keyRules(k.Fields)...).AllowExtraKeys())
	if err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			out := map[string]string{}
			flatten("", verrs, out)
			return apperr.InvalidFields(out)
		}
		return apperr.InvalidInput("", err.Error())
	}
	if k.Check != nil {
		return k.Check(fields)
	}
	return nil
}

func keyRules(fields []Field) []*validation.KeyRules {
	keys := make([]*validation.KeyRules, 0, len(fields))
	for _, f := range fields {
		rules := fieldRules(f)
		key := validation.Key(f.Name, rules...)
		if !f.Required {
			key = key.Optional()
		}
		keys = append(keys, key)
	}
	return keys
}

func fieldRules(f Field) []validation.Rule {
	var rules []validation.Rule
	if f.Required {
		if f.Type == TypeNumber {
			rules = append(rules, validation.NotNil)
		} else {
			rules = append(rules, validation.Required)
		}
	}
	switch f.Type {
	case TypeString, TypeRef:
		rules = append(rules, validation.By(isString))
	case TypeNumber:
		rules = append(rules, validation.By(isNumber))
	case TypeEnum:
		allowed := make([]any, len(f.Enum))
		for i, e := range f.Enum {
			allowed[i] = e
		}
		rules = append(rules, validation.By(isString),
			validation.In(allowed...).Error("must be one of: "+strings.Join(f.Enum, ", ")))
	case TypeDate:
		rules = append(rules, validation.By(isDate))
	case TypeRefList:
		rules = append(rules, validation.By(isList),
			validation.Each(validation.Map(keyRules(f.Element)...).AllowExtraKeys()))
	}
	return append(rules, f.Rules...)
}

func isString(v any) error {
	if v == nil {
		return nil
	}
	if _, ok := v.(string); !ok {
		return errors.New("must be a string")
	}
	return nil
}

func isNumber(v any) error {
	switch v.(type) {
	case nil, float64, float32, int, int64:
		return nil
	}
	return errors.New("must be a number")
}

func isDate(v any) error {
	if v == nil {
		return nil
	}
	if _, ok := ParseDate(v); !ok {
		return errors.New("must be a date (YYYY-MM-DD or RFC 3339)")
	}
	return nil
}

func isList(v any) error {
	if v == nil {
		return nil
	}
	if _, ok := v.([]any); !ok {
		return errors.New("must be a list")
	}
	return nil
}

func flatten(prefix string, errs validation.Errors, out map[string]string) {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		var nested validation.Errors
		if errors.As(errs[k], &nested) {
			flatten(path, nested, out)
			continue
		}
		out[path] = errs[k].Error()
	}
}

// dateOrder fails when end precedes start; absent dates are not compared.
func dateOrder(startField, endField string) func(map[string]any) error {
	return func(fields map[string]any) error {
		start, okStart := ParseDate(fields[startField])
		end, okEnd := ParseDate(fields[endField])
		if okStart && okEnd && end.Before(start) {
			return apperr.InvalidInput(endField, fmt.Sprintf("end date precedes start date (%s before %s)", endField, startField))
		}
		return nil
	}
}

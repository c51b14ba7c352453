// Package inputval validates decoded request structs using `validate`
// struct tags, with `label` naming the field in messages.
//
//	type createGroupInput struct {
//		Name string `json:"name" validate:"required,max=80" label:"Group name"`
//	}
//
// Supported rules: required, min=N, max=N (rune counts), email,
// oneof=a b c.
package inputval

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

// Result collects every failed rule, in field order.
type Result struct {
	Errors []FieldError
}

func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the string fields of the struct v (or pointer to one).
// Only the first failing rule per field is reported.
func Validate(v any) *Result {
	res := &Result{}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return res
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag := f.Tag.Get("validate")
		if tag == "" || !f.IsExported() {
			continue
		}
		val, ok := stringValue(rv.Field(i))
		if !ok {
			continue
		}
		label := f.Tag.Get("label")
		if label == "" {
			label = f.Name
		}
		if fe, failed := check(label, val, tag); failed {
			fe.Field = f.Name
			res.Errors = append(res.Errors, fe)
		}
	}
	return res
}

func stringValue(v reflect.Value) (string, bool) {
	switch {
	case v.Kind() == reflect.String:
		return v.String(), true
	case v.Kind() == reflect.Pointer && v.Type().Elem().Kind() == reflect.String:
		if v.IsNil() {
			return "", true
		}
		return v.Elem().String(), true
	}
	return "", false
}

func check(label, val, tag string) (FieldError, bool) {
	trimmed := strings.TrimSpace(val)
	for _, rule := range strings.Split(tag, ",") {
		name, arg, _ := strings.Cut(rule, "=")
		switch name {
		case "required":
			if trimmed == "" {
				return FieldError{Rule: name, Message: label + " is required."}, true
			}
		case "min":
			n, _ := strconv.Atoi(arg)
			if trimmed != "" && len([]rune(trimmed)) < n {
				return FieldError{Rule: name, Message: fmt.Sprintf("%s must be at least %d characters.", label, n)}, true
			}
		case "max":
			n, _ := strconv.Atoi(arg)
			if len([]rune(trimmed)) > n {
				return FieldError{Rule: name, Message: fmt.Sprintf("%s must be at most %d characters.", label, n)}, true
			}
		case "email":
			if trimmed != "" && !IsValidEmail(trimmed) {
				return FieldError{Rule: name, Message: "A valid email address is required."}, true
			}
		case "oneof":
			if trimmed != "" && !contains(strings.Fields(arg), trimmed) {
				return FieldError{Rule: name, Message: fmt.Sprintf("%s must be one of: %s.", label, strings.Join(strings.Fields(arg), ", "))}, true
			}
		}
	}
	return FieldError{}, false
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// IsValidEmail accepts a bare addr-spec: no display names, no spaces,
// no leading, trailing, or doubled dots in either part.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || strings.ContainsAny(email, " \t\r\n<>\"") {
		return false
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return false
	}
	return dotAtom(local) && dotAtom(domain)
}

func dotAtom(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}
	return !strings.Contains(s, "..")
}

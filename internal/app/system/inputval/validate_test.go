package inputval

import "testing"

func TestValidate(t *testing.T) {
	type input struct {
		Name  string  `validate:"required,max=10" label:"Full name"`
		Email string  `validate:"required,email" label:"Email address"`
		Type  string  `validate:"oneof=FOOD_INTAKE FRIDGE_STORAGE" label:"Event type"`
		Token *string `validate:"max=5" label:"Token"`
	}
	long := "toolongtoken"

	tests := []struct {
		name      string
		in        input
		wantFirst string
	}{
		{"valid", input{Name: "John", Email: "john@example.com", Type: "FOOD_INTAKE"}, ""},
		{"missing name", input{Email: "john@example.com"}, "Full name is required."},
		{"name too long", input{Name: "VeryLongNameThatExceedsLimit", Email: "john@example.com"}, "Full name must be at most 10 characters."},
		{"invalid email", input{Name: "John", Email: "not-an-email"}, "A valid email address is required."},
		{"bad type", input{Name: "John", Email: "j@x.co", Type: "NOTIFICATION_SENT"}, "Event type must be one of: FOOD_INTAKE, FRIDGE_STORAGE."},
		{"pointer field", input{Name: "John", Email: "j@x.co", Token: &long}, "Token must be at most 5 characters."},
		{"missing both", input{}, "Full name is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.in)
			if res.HasErrors() != (tt.wantFirst != "") {
				t.Fatalf("HasErrors = %v, errors %v", res.HasErrors(), res.Errors)
			}
			if res.First() != tt.wantFirst {
				t.Errorf("First() = %q, want %q", res.First(), tt.wantFirst)
			}
		})
	}
}

func TestValidate_PointerAndNonStruct(t *testing.T) {
	type input struct {
		Name string `validate:"required" label:"Name"`
	}
	if !Validate(&input{}).HasErrors() {
		t.Error("expected errors through a pointer")
	}
	if Validate(42).HasErrors() {
		t.Error("non-struct input should validate trivially")
	}
}

func TestResult_All(t *testing.T) {
	r := &Result{Errors: []FieldError{{Message: "Error 1"}, {Message: "Error 2"}}}
	if r.All() != "Error 1; Error 2" {
		t.Errorf("All() = %q", r.All())
	}
	if (&Result{}).All() != "" || (&Result{}).First() != "" {
		t.Error("empty result should render empty strings")
	}
}

package inputval

import "testing"

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"cook@kitchen.example",
		"first.last@example.com",
		"fridge+alerts@example.com",
		"a@b.co",
		"dev@localhost",
	}
	invalid := []string{
		"",
		"   ",
		"cook",
		"cook@",
		"@example.com",
		".cook@example.com",
		"cook.@example.com",
		"co..ok@example.com",
		"cook@.example.com",
		"cook@example..com",
		"Cook <cook@example.com>",
		"co ok@example.com",
		"cook@exa mple.com",
	}

	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = false, want true", e)
		}
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = true, want false", e)
		}
	}
}

package slug

import "testing"

func TestIsSlug(t *testing.T) {
	cases := map[string]bool{
		"brokerage":        true,
		"opening_balances": true,
		"a":                false,
		"Has-Caps":         false,
		"spaces here":      false,
	}
	for in, want := range cases {
		if got := IsSlug(in); got != want {
			t.Errorf("IsSlug(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"April Statement.csv": "april_statement_csv",
		"TXN-001":             "txn_001",
		"  weird -- input  ":  "weird_input",
		"already_fine":        "already_fine",
		"":                    "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

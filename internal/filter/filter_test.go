package filter

import "testing"

func TestMatch(t *testing.T) {
	cases := []struct {
		name    string
		include []string
		exclude []string
		subject string
		want    bool
	}{
		{"no keywords passes everything", nil, nil, "Weekly digest", true},
		{"include hit", []string{"invoice"}, nil, "Your Invoice #42", true},
		{"include miss", []string{"invoice"}, nil, "Weekly digest", false},
		{"include any of several", []string{"invoice", "receipt"}, nil, "Payment receipt", true},
		{"case insensitive", []string{"INVOICE"}, nil, "invoice enclosed", true},
		{"substring match", []string{"bill"}, nil, "Billing statement", true},
		{"exclude wins over include", []string{"invoice"}, []string{"spam"}, "Invoice [spam]", false},
		{"exclude without include", nil, []string{"newsletter"}, "Monthly Newsletter", false},
		{"blank keywords ignored", []string{"", "  "}, nil, "anything", true},
		{"empty subject with include", []string{"invoice"}, nil, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := New(tc.include, tc.exclude)
			if got := f.Match(tc.subject); got != tc.want {
				t.Errorf("Match(%q) = %v, want %v", tc.subject, got, tc.want)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	cases := []struct {
		name    string
		include []string
		exclude []string
		want    string
	}{
		{"no include terms", nil, []string{"spam"}, ""},
		{"single term", []string{"invoice"}, nil, "subject:(invoice)"},
		{"several terms", []string{"invoice", "receipt", "bill"}, nil, "subject:(invoice OR receipt OR bill)"},
		{"spaced term quoted", []string{"past due"}, nil, `subject:("past due")`},
		{"terms lowercased", []string{"Invoice"}, nil, "subject:(invoice)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := New(tc.include, tc.exclude)
			if got := f.Query(); got != tc.want {
				t.Errorf("Query() = %q, want %q", got, tc.want)
			}
		})
	}
}

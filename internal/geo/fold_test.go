package geo

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercase ascii unchanged",
			input: "centro",
			want:  "centro",
		},
		{
			name:  "uppercase folded",
			input: "CENTRO",
			want:  "centro",
		},
		{
			name:  "diacritics stripped",
			input: "São Paulo",
			want:  "sao paulo",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  Bela Vista \t",
			want:  "bela vista",
		},
		{
			name:  "interior whitespace preserved",
			input: "Rio  de Janeiro",
			want:  "rio  de janeiro",
		},
		{
			name:  "mixed accents",
			input: "Brasília-DF",
			want:  "brasilia-df",
		},
		{
			name:  "cedilla",
			input: "Iguaçu",
			want:  "iguacu",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fold(tt.input); got != tt.want {
				t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSameLabel(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{
			name: "identical",
			a:    "Centro",
			b:    "Centro",
			want: true,
		},
		{
			name: "diacritic insensitive",
			a:    "São Paulo",
			b:    "Sao Paulo",
			want: true,
		},
		{
			name: "case insensitive",
			a:    "VILA NOVA",
			b:    "vila nova",
			want: true,
		},
		{
			name: "different labels",
			a:    "Centro",
			b:    "Vila Nova",
			want: false,
		},
		{
			name: "abbreviation is a different label",
			a:    "Vila Nova",
			b:    "V. Nova",
			want: false,
		},
		{
			name: "empty never matches empty",
			a:    "",
			b:    "",
			want: false,
		},
		{
			name: "empty never matches non-empty",
			a:    "",
			b:    "Centro",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameLabel(tt.a, tt.b); got != tt.want {
				t.Errorf("SameLabel(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

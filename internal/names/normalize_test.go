package names

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "John Smith", "john smith"},
		{"title and suffix", "Dr. John A. Smith Jr.", "john a smith"},
		{"already normalized", "john a smith", "john a smith"},
		{"extra whitespace", "  John\t  Smith \n", "john smith"},
		{"punctuation removed", "O'Brien, Patrick!", "obrien patrick"},
		{"multiple titles", "Rev. Sir Thomas More", "thomas more"},
		{"roman numeral suffix", "Henry Ford III", "henry ford"},
		{"stacked suffixes", "Henry Ford Jr. II", "henry ford"},
		{"middle initial v kept", "John V. Smith", "john v smith"},
		{"diacritics folded", "Jürgen Müller", "jurgen muller"},
		{"case insensitive title", "MRS. Maria Schmidt", "maria schmidt"},
		{"digits kept", "Agent 007", "agent 007"},
		{"empty", "", ""},
		{"title only", "Dr.", ""},
		{"punctuation only", "...", ""},
		{"non-latin script", "Иван Петров", "иван петров"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Dr. John A. Smith Jr.",
		"  Lady   Ada-Lovelace ",
		"İstanbul Ömer",
		"Mr. V",
		"José María Aznar IV",
		"Sir",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalize_EquivalentSpellings(t *testing.T) {
	if Normalize("Dr. John A. Smith Jr.") != Normalize("john a smith") {
		t.Error("titled and plain spellings should normalize identically")
	}
	if Normalize("J.SMITH") != Normalize("jsmith") {
		t.Error("punctuation and case should not matter")
	}
}

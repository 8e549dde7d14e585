package names

import "testing"

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name        string
		input, know string
		want        int
	}{
		{"identical", "john smith", "john smith", 100},
		{"empty both", "", "", 0},
		{"empty one", "john", "", 0},
		{"one deletion", "john smith", "jon smith", 90},
		{"one substitution", "john smith", "john smyth", 90},
		{"different first name", "john smith", "jane smith", 70},
		{"initial", "j smith", "john smith", InitialMatchScore},
		{"spelled out against stored initial", "john smith", "j smith", 70},
		{"other name against stored initial", "jane smith", "j smith", 70},
		{"middle initial", "john a smith", "john adam smith", InitialMatchScore},
		{"different surname with initial", "j smith", "john smyth", 60},
		{"unrelated", "abcd", "wxyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.input, tt.know); got != tt.want {
				t.Errorf("Similarity(%q, %q) = %d, want %d", tt.input, tt.know, got, tt.want)
			}
		})
	}
}

func TestSimilarity_SymmetricWithoutInitials(t *testing.T) {
	pairs := [][2]string{
		{"john smith", "jon smith"},
		{"maria schmidt", "mario schmitt"},
		{"jane smith", "john smith"},
	}
	for _, p := range pairs {
		if Similarity(p[0], p[1]) != Similarity(p[1], p[0]) {
			t.Errorf("Similarity not symmetric for %q / %q", p[0], p[1])
		}
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"a", "zzzzzzzzzz"},
		{"abc", "xyz"},
		{"müller", "muller"},
	}
	for _, p := range pairs {
		s := Similarity(p[0], p[1])
		if s < 0 || s > 100 {
			t.Errorf("Similarity(%q, %q) = %d out of range", p[0], p[1], s)
		}
	}
}

func TestConflicts(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"jane smith", "john smith", true},
		{"al johannesburg", "ed johannesburg", true},
		{"jon smith", "john smith", false},
		{"john smyth", "john smith", false},
		{"j smith", "john smith", false},
		{"jane smith", "j smith", false},
		{"john a smith", "john smith", false},
		{"john smith", "john smith", false},
	}

	for _, tt := range tests {
		if got := Conflicts(tt.a, tt.b); got != tt.want {
			t.Errorf("Conflicts(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

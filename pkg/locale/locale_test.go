package locale

import "testing"

func TestEquals(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"GANDALF", "Gandalf", true},
		{"Élixir de Mémoire", "elixir de memoire", true},
		{"Belladone", "belladone ", false},
		{"açaï", "ACAI", true},
		{"Ortie", "Sauge", false},
	}
	for _, tc := range cases {
		if got := Equals(tc.a, tc.b); got != tc.want {
			t.Errorf("Equals(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFoldIdempotent(t *testing.T) {
	s := "Véritasérum"
	once := Fold(s)
	if Fold(once) != once {
		t.Fatalf("Fold not idempotent for %q", s)
	}
}

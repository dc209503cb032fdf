package normalize

import "testing"

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Banana Nanica", "bananananica"},
		{"hyphenated", "BANANA-NANICA", "bananananica"},
		{"punctuation", "banana nanica!!", "bananananica"},
		{"accents", "FEIJÃO CARIOCA", "feijaocarioca"},
		{"cedilla", "Açúcar Cristal", "acucarcristal"},
		{"digits kept", "Leite UHT 1L", "leiteuht1l"},
		{"empty", "", ""},
		{"symbols only", "--- !!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.in); got != tt.want {
				t.Errorf("Key(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeyEquivalence(t *testing.T) {
	variants := []string{"Banana Nanica", "BANANA-NANICA", "banana nanica!!"}
	want := Key(variants[0])
	for _, v := range variants[1:] {
		if got := Key(v); got != want {
			t.Errorf("Key(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestMatcherSubstring(t *testing.T) {
	m := NewMatcher()

	if !m.MatchNames("Banana", "Banana Nanica") {
		t.Error("partial name should match the longer contracted name")
	}
	if !m.MatchNames("BANANA NANICA", "banana") {
		t.Error("substring match must be symmetric")
	}
	if m.MatchNames("Arroz", "Feijão") {
		t.Error("unrelated names must not match")
	}
	if m.MatchNames("", "Arroz") {
		t.Error("empty key must never match")
	}
}

func TestMatcherExactOnly(t *testing.T) {
	m := &Matcher{Substring: false}

	if m.MatchNames("Banana", "Banana Nanica") {
		t.Error("substring match should be off")
	}
	if !m.MatchNames("Banana Nanica", "BANANA-NANICA") {
		t.Error("equal keys must still match")
	}
}

package eligibility

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Notebook   Gamer ", "notebook gamer"},
		{"Fogão 4 Bocas", "fogao 4 bocas"},
		{"CAFÉ Expresso", "cafe expresso"},
		{"ação\tpromoção", "acao promocao"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestEligible_LongTagSubstring(t *testing.T) {
	f := New([]string{"gamer", "Smartphone"}, false)

	ok, matched := f.Eligible("Notebook Gamer RTX 4060")
	if !ok {
		t.Fatal("expected eligible")
	}
	if len(matched) != 1 || matched[0] != "gamer" {
		t.Errorf("expected matched [gamer], got %v", matched)
	}

	if ok, _ := f.Eligible("Smartphones em oferta"); !ok {
		t.Error("long tags match as substrings, including inside longer words")
	}
}

func TestEligible_ShortTagWordBoundary(t *testing.T) {
	f := New([]string{"tv"}, false)

	if ok, _ := f.Eligible("Smart TV 50 polegadas"); !ok {
		t.Error("expected standalone short token to match")
	}
	if ok, _ := f.Eligible("Atividade física kit"); ok {
		t.Error("short token must not match inside a longer word")
	}
}

// A 2-3 char alphanumeric tag embedded inside random longer words must never
// match without a word boundary.
func TestEligible_ShortTagNoSubstringMatch(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	letters := []rune("abcdefghijklmnopqrstuvwxyz")
	tags := []string{"tv", "ps5", "ar"}

	f := New(tags, false)
	for i := 0; i < 200; i++ {
		tag := tags[rng.Intn(len(tags))]
		prefix := string(letters[rng.Intn(len(letters))])
		suffix := string(letters[rng.Intn(len(letters))])
		word := fmt.Sprintf("oferta %s%s%s imperdivel", prefix, tag, suffix)

		if ok, _ := f.Eligible(word); ok {
			t.Fatalf("tag %q matched inside containing word in %q", tag, word)
		}
	}
}

func TestEligible_EmptyCatalogPolicy(t *testing.T) {
	permit := New(nil, true)
	if ok, matched := permit.Eligible("qualquer coisa"); !ok || matched != nil {
		t.Errorf("permit-all policy: expected (true, nil), got (%v, %v)", ok, matched)
	}

	deny := New(nil, false)
	if ok, _ := deny.Eligible("qualquer coisa"); ok {
		t.Error("deny-all policy: expected ineligible")
	}
}

// Adding a tag that does not match the name must not change the decision.
func TestEligible_IdempotentUnderUnrelatedTags(t *testing.T) {
	name := "Notebook Gamer RTX"

	base := New([]string{"gamer"}, false)
	okBase, _ := base.Eligible(name)

	extended := New([]string{"gamer", "geladeira", "fogao", "tv"}, false)
	okExt, matched := extended.Eligible(name)

	if okBase != okExt {
		t.Errorf("unrelated tag changed eligibility: %v vs %v", okBase, okExt)
	}
	if len(matched) != 1 || matched[0] != "gamer" {
		t.Errorf("expected matched [gamer], got %v", matched)
	}
}

func TestEligible_DiacriticInsensitive(t *testing.T) {
	f := New([]string{"fogão"}, false)
	if ok, _ := f.Eligible("FOGAO 5 bocas inox"); !ok {
		t.Error("expected diacritic-stripped tag to match plain name")
	}
}

func TestNew_DuplicateTagsCollapse(t *testing.T) {
	f := New([]string{"Gamer", "gamer", "GAMER"}, false)
	_, matched := f.Eligible("mouse gamer")
	if len(matched) != 1 {
		t.Errorf("expected duplicate tags to collapse to one match, got %v", matched)
	}
}

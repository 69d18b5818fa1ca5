package index

import "testing"

func TestStemUnifiesDerivedForms(t *testing.T) {
	cases := []struct {
		a, b string
	}{
		{"configure", "configuration"},
		{"install", "installing"},
		{"deploy", "deployed"},
		{"index", "indexes"},
	}
	for _, c := range cases {
		if stem(c.a) != stem(c.b) {
			t.Errorf("stem(%q)=%q and stem(%q)=%q should match", c.a, stem(c.a), c.b, stem(c.b))
		}
	}
}

func TestTokenizeDropsStopWords(t *testing.T) {
	tokens := Tokenize("the server is in the rack")
	for _, tok := range tokens {
		if tok.Term == "the" || tok.Term == "is" || tok.Term == "in" {
			t.Errorf("stop word survived tokenization: %q", tok.Term)
		}
	}
	if len(tokens) != 2 {
		t.Errorf("expected 2 tokens (server, rack), got %d: %v", len(tokens), tokens)
	}
}

func TestTokenizeHandlesSpanish(t *testing.T) {
	tokens := Tokenize("la configuración del servidor")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %v", len(tokens), tokens)
	}
	// configuración and configurar should reduce to the same term.
	confQ := Tokenize("configurar")
	if len(confQ) != 1 || confQ[0].Term != tokens[0].Term {
		t.Errorf("configurar (%v) should co-stem with configuración (%q)", confQ, tokens[0].Term)
	}
}

func TestTokenizePositionsAreSequential(t *testing.T) {
	tokens := Tokenize("alpha beta gamma delta")
	for i, tok := range tokens {
		if tok.Position != i {
			t.Errorf("token %d has position %d", i, tok.Position)
		}
	}
}

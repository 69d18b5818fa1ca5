package keyword

import (
	"reflect"
	"testing"
)

func TestExtractKeywords(t *testing.T) {
	a := Extract("What is the server configuration procedure?")
	want := []string{"server", "configuration", "procedure"}
	if !reflect.DeepEqual(a.Keywords, want) {
		t.Errorf("keywords = %v, want %v", a.Keywords, want)
	}
}

func TestExtractCapsAtFive(t *testing.T) {
	a := Extract("alpha bravo charlie delta echoes foxtrot golfing hotels")
	if len(a.Keywords) != MaxKeywords {
		t.Errorf("expected %d keywords, got %d: %v", MaxKeywords, len(a.Keywords), a.Keywords)
	}
	if a.Keywords[0] != "alpha" {
		t.Errorf("keywords should preserve question order, got %v", a.Keywords)
	}
}

func TestExtractShortAndStopWords(t *testing.T) {
	a := Extract("is it in the end by an odd way")
	if len(a.Keywords) != 0 {
		t.Errorf("expected no keywords, got %v", a.Keywords)
	}
}

func TestExtractLengthFilterCountsRunes(t *testing.T) {
	// "año" is three letters even though its UTF-8 encoding is four bytes;
	// it must fall under the short-word filter like "day" does.
	a := Extract("cuánto cuesta este año")
	want := []string{"cuesta"}
	if !reflect.DeepEqual(a.Keywords, want) {
		t.Errorf("keywords = %v, want %v", a.Keywords, want)
	}
}

func TestExtractSpanishQuestion(t *testing.T) {
	a := Extract("¿Cuándo vence el contrato de mantenimiento?")
	want := []string{"vence", "contrato", "mantenimiento"}
	if !reflect.DeepEqual(a.Keywords, want) {
		t.Errorf("keywords = %v, want %v", a.Keywords, want)
	}
	if a.Intent != IntentTemporal {
		t.Errorf("intent = %v, want temporal", a.Intent)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	question := "How does the backup process handle incremental snapshots?"
	first := Extract(question)
	for i := 0; i < 10; i++ {
		if got := Extract(question); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differed: %v vs %v", i, got, first)
		}
	}
}

func TestClassifyIntents(t *testing.T) {
	cases := []struct {
		question string
		want     Intent
	}{
		{"What is a load balancer?", IntentDefinition},
		{"How do I rotate the logs?", IntentProcess},
		{"When was the policy updated?", IntentTemporal},
		{"Where is the data center located?", IntentLocation},
		{"Why did the migration fail?", IntentReason},
		{"How many replicas are required?", IntentQuantity},
		{"List the supported platforms", IntentGeneral},
		{"¿Qué es un certificado digital?", IntentDefinition},
		{"¿Cómo se renueva la licencia?", IntentProcess},
		{"¿Cuántos usuarios soporta el sistema?", IntentQuantity},
	}
	for _, c := range cases {
		if got := Extract(c.question).Intent; got != c.want {
			t.Errorf("Extract(%q).Intent = %v, want %v", c.question, got, c.want)
		}
	}
}

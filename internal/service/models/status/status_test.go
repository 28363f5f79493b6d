package status

import "testing"

func TestParseStatusAcceptsEveryKnownValue(t *testing.T) {
	for _, s := range All() {
		parsed, err := ParseStatus(string(s))
		if err != nil {
			t.Fatalf("expected %q to parse, got error %v", s, err)
		}
		if parsed != s {
			t.Fatalf("expected %q, got %q", s, parsed)
		}
	}
}

func TestParseStatusRejectsUnknownValue(t *testing.T) {
	for _, raw := range []string{"", "done", "Pending", "in_progress", "IN-PROGRESS"} {
		if _, err := ParseStatus(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestLabelIsCanonical(t *testing.T) {
	cases := map[Status]string{
		StatusPending:    "Pendente",
		StatusProjetando: "Projetando",
		StatusInProgress: "Em Produção",
		StatusFinishing:  "Acabamento",
		StatusCompleted:  "Concluído",
		StatusDelivered:  "Entregue",
		StatusCancelled:  "Cancelado",
	}
	for s, want := range cases {
		if got := s.Label(); got != want {
			t.Fatalf("expected label %q for %q, got %q", want, s, got)
		}
	}
}

func TestInProduction(t *testing.T) {
	if !StatusProjetando.InProduction() {
		t.Fatalf("expected projetando to count as in production")
	}
	if !StatusInProgress.InProduction() {
		t.Fatalf("expected in-progress to count as in production")
	}
	for _, s := range []Status{StatusPending, StatusFinishing, StatusCompleted, StatusDelivered, StatusCancelled} {
		if s.InProduction() {
			t.Fatalf("expected %q to not count as in production", s)
		}
	}
}

package order

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeNotes(t *testing.T) {
	specs := []ToothSpec{
		{Tooth: "11", WorkType: "coroa", Material: "zircônia"},
		{Tooth: "21", ImplantType: "hexágono externo"},
	}

	plain, err := EncodeNotes("entregar até sexta", nil)
	if err != nil {
		t.Fatalf("EncodeNotes failed: %v", err)
	}
	if plain != "entregar até sexta" {
		t.Fatalf("expected notes untouched without specs, got %q", plain)
	}

	withSpecs, err := EncodeNotes("entregar até sexta", specs)
	if err != nil {
		t.Fatalf("EncodeNotes failed: %v", err)
	}
	if !strings.HasPrefix(withSpecs, "entregar até sexta\n") {
		t.Fatalf("expected the free text kept above the block, got %q", withSpecs)
	}
	if !strings.Contains(withSpecs, `"tooth":"11"`) || !strings.Contains(withSpecs, `"tooth":"21"`) {
		t.Fatalf("expected both teeth encoded, got %q", withSpecs)
	}
	if strings.Contains(withSpecs, `"implantType":""`) {
		t.Fatalf("expected empty overrides omitted, got %q", withSpecs)
	}

	bare, err := EncodeNotes("", specs)
	if err != nil {
		t.Fatalf("EncodeNotes failed: %v", err)
	}
	if strings.HasPrefix(bare, "\n") {
		t.Fatalf("expected no leading newline without free text, got %q", bare)
	}
}

func TestParseAttachmentKind(t *testing.T) {
	for raw, want := range map[string]AttachmentKind{
		"photo": AttachmentPhoto,
		"scan":  AttachmentScan,
		"Photo": AttachmentPhoto,
		"SCAN":  AttachmentScan,
	} {
		got, err := ParseAttachmentKind(raw)
		if err != nil {
			t.Fatalf("ParseAttachmentKind(%q) failed: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseAttachmentKind(%q): expected %s, got %s", raw, want, got)
		}
	}

	for _, raw := range []string{"", "document", "xray"} {
		if _, err := ParseAttachmentKind(raw); !errors.Is(err, ErrInvalidAttachmentKind) {
			t.Fatalf("ParseAttachmentKind(%q): expected ErrInvalidAttachmentKind, got %v", raw, err)
		}
	}
}

package extraction

import (
	"reflect"
	"testing"
)

func TestNewDocumentOptions(t *testing.T) {
	t.Run("explicit field lists", func(t *testing.T) {
		options := NewDocumentOptions("c-1", DocumentTypeInvoice,
			[]string{"documentNumber"}, []string{"quantity"}, "")
		if options.SchemaID != "" {
			t.Errorf("SchemaID = %q, want empty", options.SchemaID)
		}
		if options.Extraction == nil {
			t.Fatal("Extraction is nil")
		}
		if !reflect.DeepEqual(options.Extraction.HeaderFields, []string{"documentNumber"}) {
			t.Errorf("HeaderFields = %v", options.Extraction.HeaderFields)
		}
		if !reflect.DeepEqual(options.Extraction.LineItemFields, []string{"quantity"}) {
			t.Errorf("LineItemFields = %v", options.Extraction.LineItemFields)
		}
	})

	t.Run("schema wins over field lists", func(t *testing.T) {
		options := NewDocumentOptions("c-1", DocumentTypeInvoice,
			[]string{"documentNumber"}, nil, "schema-1")
		if options.SchemaID != "schema-1" {
			t.Errorf("SchemaID = %q, want schema-1", options.SchemaID)
		}
		if options.Extraction != nil {
			t.Errorf("Extraction = %v, want nil when a schema is used", options.Extraction)
		}
	})

	t.Run("nil field lists marshal as empty arrays", func(t *testing.T) {
		options := NewDocumentOptions("c-1", DocumentTypeInvoice, nil, nil, "")
		if options.Extraction.HeaderFields == nil || options.Extraction.LineItemFields == nil {
			t.Error("expected empty slices, got nil")
		}
	})
}

func TestSplitFieldList(t *testing.T) {
	tests := []struct {
		name   string
		fields string
		want   []string
	}{
		{"empty", "", nil},
		{"single", "documentNumber", []string{"documentNumber"}},
		{"multiple with spaces", "documentNumber, grossAmount ,currencyCode", []string{"documentNumber", "grossAmount", "currencyCode"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitFieldList(tt.fields); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitFieldList(%q) = %v, want %v", tt.fields, got, tt.want)
			}
		})
	}
}

func TestSniffMimeType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"scan.pdf", ContentTypePDF},
		{"page.png", ContentTypePNG},
		{"noextension", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := sniffMimeType(tt.path); got != tt.want {
				t.Errorf("sniffMimeType(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolveMimeTypes(t *testing.T) {
	t.Run("defaults to pdf", func(t *testing.T) {
		got, err := resolveMimeTypes(ExtractParams{}, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0] != ContentTypePDF || got[1] != ContentTypePDF {
			t.Errorf("got %v", got)
		}
	})

	t.Run("per-document list", func(t *testing.T) {
		got, err := resolveMimeTypes(ExtractParams{MimeTypes: []string{ContentTypePDF, ContentTypePNG}}, 2)
		if err != nil {
			t.Fatal(err)
		}
		if got[1] != ContentTypePNG {
			t.Errorf("got %v", got)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		if _, err := resolveMimeTypes(ExtractParams{MimeTypes: []string{ContentTypePDF}}, 2); err == nil {
			t.Error("expected error for mismatched list length")
		}
	})
}

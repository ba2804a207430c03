package services

import (
	"context"
	"time"

	"registryhub/internal/adapters/persistence/models"
)

// ExtractedField is one field produced by an extraction provider
type ExtractedField struct {
	Name  string
	Value string
	Type  string
	Order int
}

// Extractor is the pluggable extraction provider. The production
// system would put a real OCR service behind this; the registry core
// only cares about the resulting name → value mapping.
type Extractor interface {
	Extract(ctx context.Context, doc *models.Document) ([]ExtractedField, error)
}

// MockExtractor simulates OCR synchronously with an artificial delay
// and a fixed per-act-type field template.
type MockExtractor struct {
	Delay time.Duration
}

// NewMockExtractor creates a mock extractor
func NewMockExtractor(delay time.Duration) *MockExtractor {
	return &MockExtractor{Delay: delay}
}

var mockTemplates = map[string][]string{
	"naissances":     {"nom", "prenom", "date_naissance", "lieu_naissance", "nom_pere", "nom_mere"},
	"deces":          {"nom", "prenom", "date_deces", "lieu_deces", "cause"},
	"jugements":      {"numero_jugement", "tribunal", "date_jugement", "objet"},
	"transcriptions": {"acte_origine", "autorite", "date_transcription"},
	"etrangers":      {"nom", "prenom", "nationalite", "date_acte"},
}

// Extract returns the mock field set for the document's act type
func (m *MockExtractor) Extract(ctx context.Context, doc *models.Document) ([]ExtractedField, error) {
	select {
	case <-time.After(m.Delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	names, ok := mockTemplates[doc.RegistreType]
	if !ok {
		names = []string{"nom", "prenom", "date_acte"}
	}

	fields := make([]ExtractedField, 0, len(names))
	for i, name := range names {
		fields = append(fields, ExtractedField{
			Name:  name,
			Value: "",
			Type:  "text",
			Order: i,
		})
	}
	return fields, nil
}

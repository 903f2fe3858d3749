package postprocessors

import (
	"testing"

	"github.com/custodia-labs/integra/internal/core/domain"
)

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if len(p.processors) != 0 {
		t.Errorf("expected empty processors, got %d", len(p.processors))
	}
}

func TestPipeline_Add(t *testing.T) {
	p := NewPipeline()

	p.Add(NewSanitizer())
	p.Add(NewDeduplicator())
	p.Add(NewSorter())

	names := p.List()
	if len(names) != 3 {
		t.Errorf("expected 3 processors, got %d", len(names))
	}
}

func TestPipeline_Process_Empty(t *testing.T) {
	p := DefaultPipeline()

	items := p.Process(nil)
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}

func TestPipeline_OrderIndependentOfAddOrder(t *testing.T) {
	p := NewPipeline()
	p.Add(NewSorter())
	p.Add(NewSanitizer())

	items := p.Process([]domain.IntegrationItem{
		{ID: "b", Name: "  zeta  "},
		{ID: "a", Name: ""},
	})

	// Sanitizer runs before the sorter regardless of Add order,
	// so the blank name is backfilled and sorts first.
	if items[0].Name != "untitled" {
		t.Errorf("expected backfilled name first, got %q", items[0].Name)
	}
	if items[1].Name != "zeta" {
		t.Errorf("expected trimmed name, got %q", items[1].Name)
	}
}

func TestSanitizer(t *testing.T) {
	s := NewSanitizer()

	items := s.Process([]domain.IntegrationItem{
		{ID: "1", Name: "  Deal One  ", Parent: " Deals ", URL: " https://x "},
		{ID: "2", Name: "   "},
	})

	if items[0].Name != "Deal One" || items[0].Parent != "Deals" || items[0].URL != "https://x" {
		t.Errorf("expected trimmed fields, got %+v", items[0])
	}
	if items[1].Name != "untitled" {
		t.Errorf("expected placeholder name, got %q", items[1].Name)
	}
}

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator()

	items := d.Process([]domain.IntegrationItem{
		{ID: "contact_1", Name: "First"},
		{ID: "contact_2", Name: "Second"},
		{ID: "contact_1", Name: "Repeat"},
	})

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Name != "First" {
		t.Errorf("expected first occurrence kept, got %q", items[0].Name)
	}
}

func TestDeduplicator_KeepsEmptyIDs(t *testing.T) {
	d := NewDeduplicator()

	items := d.Process([]domain.IntegrationItem{
		{Name: "one"},
		{Name: "two"},
	})

	if len(items) != 2 {
		t.Errorf("items without IDs must not collapse, got %d", len(items))
	}
}

func TestSorter(t *testing.T) {
	s := NewSorter()

	items := s.Process([]domain.IntegrationItem{
		{ID: "3", Type: "deal", Name: "beta"},
		{ID: "1", Type: "contact", Name: "Zed"},
		{ID: "2", Type: "contact", Name: "alice"},
	})

	if items[0].Type != "contact" || items[0].Name != "alice" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[1].Name != "Zed" {
		t.Errorf("expected case-insensitive name order, got %q", items[1].Name)
	}
	if items[2].Type != "deal" {
		t.Errorf("expected deal last, got %+v", items[2])
	}
}

func TestDefaultPipeline(t *testing.T) {
	p := DefaultPipeline()

	names := p.List()
	if len(names) != 3 {
		t.Fatalf("expected 3 default processors, got %d", len(names))
	}

	items := p.Process([]domain.IntegrationItem{
		{ID: "deal_1", Type: "deal", Name: " Big Deal "},
		{ID: "contact_1", Type: "contact", Name: "Ada"},
		{ID: "deal_1", Type: "deal", Name: "Big Deal"},
	})

	if len(items) != 2 {
		t.Fatalf("expected dedup to 2 items, got %d", len(items))
	}
	if items[0].ID != "contact_1" || items[1].Name != "Big Deal" {
		t.Errorf("unexpected pipeline output: %+v", items)
	}
}

package property

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/stayflow-core/internal/infrastructure/config"
)

func TestNewDirectory(t *testing.T) {
	if _, err := time.LoadLocation("America/Sao_Paulo"); err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	site := config.SiteConfig{
		ID:       "site",
		Timezone: "Europe/London",
		Properties: []config.PropertyConfig{
			{ID: "explicit", Timezone: "America/Sao_Paulo"},
			// Gramado, RS.
			{ID: "coords", Location: config.LocationConfig{Latitude: -29.37, Longitude: -50.87}},
			{ID: "inherits"},
		},
	}
	d, err := NewDirectory(site)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}

	tests := map[string]string{
		"explicit": "America/Sao_Paulo",
		"coords":   "America/Sao_Paulo",
		"inherits": "Europe/London",
		"unknown":  "UTC",
	}
	for id, want := range tests {
		if got := d.Location(id).String(); got != want {
			t.Errorf("Location(%s) = %s, want %s", id, got, want)
		}
	}

	if d.DefaultID() != "explicit" {
		t.Errorf("DefaultID = %s, want first property when site id is not listed", d.DefaultID())
	}
	if ids := d.IDs(); len(ids) != 3 || ids[0] != "coords" {
		t.Errorf("IDs = %v", ids)
	}
	if _, err := d.Get("nope"); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("Get(nope) = %v, want ErrUnknownProperty", err)
	}
}

func TestSiteOnly(t *testing.T) {
	d, err := NewDirectory(config.SiteConfig{ID: "property-001", Name: "Pousada"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := d.Get("property-001")
	if err != nil {
		t.Fatal(err)
	}
	if p.Location != time.UTC || p.Name != "Pousada" || d.DefaultID() != "property-001" {
		t.Errorf("property = %+v default %s", p, d.DefaultID())
	}
}

func TestBadTimezone(t *testing.T) {
	_, err := NewDirectory(config.SiteConfig{ID: "s", Timezone: "Mars/Olympus"})
	if err == nil {
		t.Fatal("NewDirectory accepted an unknown zone")
	}
}

func TestToday(t *testing.T) {
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	d, err := NewDirectory(config.SiteConfig{ID: "p", Timezone: saoPaulo.String()})
	if err != nil {
		t.Fatal(err)
	}
	// 01:30 UTC on the 10th is still the 9th in São Paulo.
	got := d.Today("p", time.Date(2025, 6, 10, 1, 30, 0, 0, time.UTC))
	if want := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Today = %s, want %s", got, want)
	}
}

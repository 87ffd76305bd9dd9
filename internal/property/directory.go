// Package property knows which properties this instance serves and the
// local time zone of each.
//
// Every date a guest sees (check-in day, quiet hours, reminder windows) is
// local to the property, so the zone is resolved once at startup:
// an explicit IANA name wins, then the zone at the property's coordinates,
// then the site's zone, then UTC.
package property

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bradfitz/latlong"

	"github.com/nerrad567/stayflow-core/internal/infrastructure/config"
)

// ErrUnknownProperty is returned for a property id this instance does not serve.
var ErrUnknownProperty = errors.New("property: unknown property")

// Property is a served property with its resolved zone.
type Property struct {
	ID       string
	Name     string
	Location *time.Location
}

// Directory is an immutable lookup of served properties.
type Directory struct {
	byID      map[string]Property
	defaultID string
}

// NewDirectory resolves every property in the site configuration. When no
// properties are listed the site itself is the only property.
func NewDirectory(site config.SiteConfig) (*Directory, error) {
	siteLoc, err := resolve(site.Timezone, site.Location, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.ID, err)
	}

	d := &Directory{byID: make(map[string]Property), defaultID: site.ID}
	if len(site.Properties) == 0 {
		d.byID[site.ID] = Property{ID: site.ID, Name: site.Name, Location: siteLoc}
		return d, nil
	}

	for _, p := range site.Properties {
		loc, err := resolve(p.Timezone, p.Location, siteLoc)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", p.ID, err)
		}
		d.byID[p.ID] = Property{ID: p.ID, Name: p.Name, Location: loc}
	}
	if _, ok := d.byID[d.defaultID]; !ok {
		d.defaultID = site.Properties[0].ID
	}
	return d, nil
}

func resolve(tz string, coords config.LocationConfig, fallback *time.Location) (*time.Location, error) {
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("loading timezone %q: %w", tz, err)
		}
		return loc, nil
	}
	if !coords.IsZero() {
		if name := latlong.LookupZoneName(coords.Latitude, coords.Longitude); name != "" {
			if loc, err := time.LoadLocation(name); err == nil {
				return loc, nil
			}
		}
	}
	return fallback, nil
}

// DefaultID is the property used when a request does not name one.
func (d *Directory) DefaultID() string { return d.defaultID }

// Get returns a served property.
func (d *Directory) Get(id string) (Property, error) {
	p, ok := d.byID[id]
	if !ok {
		return Property{}, fmt.Errorf("%w: %q", ErrUnknownProperty, id)
	}
	return p, nil
}

// Location returns the property's zone, or UTC for an unknown property.
func (d *Directory) Location(id string) *time.Location {
	if p, ok := d.byID[id]; ok {
		return p.Location
	}
	return time.UTC
}

// IDs lists served property ids in sorted order.
func (d *Directory) IDs() []string {
	ids := make([]string, 0, len(d.byID))
	for id := range d.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Today returns the calendar date at now in the property's zone, as
// midnight UTC so it compares directly with lodging.ParseDate results.
func (d *Directory) Today(id string, now time.Time) time.Time {
	local := now.In(d.Location(id))
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

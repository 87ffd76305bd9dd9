package stay

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// StayFilter narrows ListStays. Zero fields match everything.
type StayFilter struct {
	Status  lodging.StayStatus
	CabinID string
	GuestID string
	GroupID string
}

// CabinRequest registers a cabin.
type CabinRequest struct {
	ID           string `json:"id,omitempty" validate:"omitempty,max=64,excludesall= /?#"`
	Name         string `json:"name" validate:"required,max=100"`
	Capacity     int    `json:"capacity,omitempty" validate:"min=0,max=50"`
	WifiSSID     string `json:"wifiSsid,omitempty"`
	WifiPassword string `json:"wifiPassword,omitempty"`
}

// GetStay returns one stay.
func (m *Manager) GetStay(ctx context.Context, propertyID, stayID string) (*lodging.Stay, error) {
	var s *lodging.Stay
	err := m.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		s, err = loadStay(ctx, tx, stayID)
		return err
	})
	return s, err
}

// ListStays returns stays matching f in booking order.
func (m *Manager) ListStays(ctx context.Context, propertyID string, f StayFilter) ([]lodging.Stay, error) {
	var filters []store.Filter
	if f.Status != "" {
		filters = append(filters, store.Eq("status", f.Status))
	}
	if f.CabinID != "" {
		filters = append(filters, store.Eq("cabinId", f.CabinID))
	}
	if f.GuestID != "" {
		filters = append(filters, store.Eq("guestId", f.GuestID))
	}
	if f.GroupID != "" {
		filters = append(filters, store.Eq("groupId", f.GroupID))
	}
	var out []lodging.Stay
	err := m.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		out, err = store.Query[lodging.Stay](ctx, tx, lodging.CollectionStays, filters...)
		return err
	})
	return out, err
}

// GetGuest returns one guest.
func (m *Manager) GetGuest(ctx context.Context, propertyID, guestID string) (*lodging.Guest, error) {
	var g *lodging.Guest
	err := m.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		g, err = store.Get[lodging.Guest](ctx, tx, lodging.CollectionGuests, guestID)
		return err
	})
	return g, err
}

// RegisterCabin adds an available cabin to the property.
func (m *Manager) RegisterCabin(ctx context.Context, propertyID string, req CabinRequest) (*lodging.Cabin, error) {
	if err := lodging.Validate(req); err != nil {
		return nil, err
	}
	c := &lodging.Cabin{
		ID:           req.ID,
		Name:         req.Name,
		Status:       lodging.CabinAvailable,
		Capacity:     req.Capacity,
		WifiSSID:     req.WifiSSID,
		WifiPassword: req.WifiPassword,
	}
	if c.ID == "" {
		c.ID = "cabin-" + uuid.NewString()
	}

	err := m.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		c.PropertyID = tx.PropertyID()
		c.CreatedAt = tx.Now()
		c.UpdatedAt = tx.Now()
		if err := tx.Create(ctx, lodging.CollectionCabins, c.ID, c); err != nil {
			return fmt.Errorf("registering cabin %s: %w", c.ID, err)
		}
		tx.Audit(audit.AuditLog{
			Action:     "cabin.register",
			EntityType: "cabin",
			EntityID:   c.ID,
			Details:    map[string]any{"name": c.Name},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCabin returns one cabin.
func (m *Manager) GetCabin(ctx context.Context, propertyID, cabinID string) (*lodging.Cabin, error) {
	var c *lodging.Cabin
	err := m.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		c, err = store.Get[lodging.Cabin](ctx, tx, lodging.CollectionCabins, cabinID)
		return err
	})
	return c, err
}

// ListCabins returns every cabin, optionally narrowed to one status.
func (m *Manager) ListCabins(ctx context.Context, propertyID string, status lodging.CabinStatus) ([]lodging.Cabin, error) {
	var filters []store.Filter
	if status != "" {
		filters = append(filters, store.Eq("status", status))
	}
	var out []lodging.Cabin
	err := m.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		out, err = store.Query[lodging.Cabin](ctx, tx, lodging.CollectionCabins, filters...)
		return err
	})
	return out, err
}

package stay

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// GuestInput describes the guest a booking creates when no guest id is given.
type GuestInput struct {
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName,omitempty" validate:"max=100"`
	Phone       string `json:"phone,omitempty" validate:"max=32"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Document    string `json:"document,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	BirthDate   string `json:"birthDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// BookingRequest books one guest into one or more cabins for one date range.
type BookingRequest struct {
	GuestID      string      `json:"guestId,omitempty"`
	Guest        *GuestInput `json:"guest,omitempty" validate:"required_without=GuestID"`
	CabinIDs     []string    `json:"cabinIds" validate:"required,min=1,dive,required"`
	CheckIn      string      `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut     string      `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Adults       int         `json:"adults,omitempty" validate:"min=0"`
	Children     int         `json:"children,omitempty" validate:"min=0"`
	HasOpenFolio bool        `json:"hasOpenFolio,omitempty"`
	Notes        string      `json:"notes,omitempty"`
}

// Booking is the result of BookStay. Sibling stays share the access code
// and, when there is more than one, the group id.
type Booking struct {
	AccessCode string         `json:"accessCode"`
	GroupID    string         `json:"groupId,omitempty"`
	GuestID    string         `json:"guestId"`
	Stays      []lodging.Stay `json:"stays"`
}

// BookStay creates one pending stay per cabin, all or none.
func (m *Manager) BookStay(ctx context.Context, propertyID string, req BookingRequest) (*Booking, error) {
	if err := lodging.Validate(req); err != nil {
		return nil, err
	}
	if req.CheckOut <= req.CheckIn {
		return nil, fmt.Errorf("%w: checkOut %s must be after checkIn %s", lodging.ErrInvalidInput, req.CheckOut, req.CheckIn)
	}
	for i, id := range req.CabinIDs {
		if slices.Contains(req.CabinIDs[:i], id) {
			return nil, fmt.Errorf("%w: cabin %s listed twice", lodging.ErrInvalidInput, id)
		}
	}

	var booking *Booking
	err := m.run(ctx, propertyID, func(tx store.Tx, events *[]lodging.Event) error {
		guestID, err := m.resolveGuest(ctx, tx, req)
		if err != nil {
			return err
		}
		for _, cabinID := range req.CabinIDs {
			if err := ensureBookable(ctx, tx, cabinID, req.CheckIn, req.CheckOut); err != nil {
				return err
			}
		}

		code, err := m.uniqueAccessCode(ctx, tx)
		if err != nil {
			return err
		}
		booking = &Booking{AccessCode: code, GuestID: guestID}
		if len(req.CabinIDs) > 1 {
			booking.GroupID = "grp-" + uuid.NewString()
		}

		now := tx.Now()
		for _, cabinID := range req.CabinIDs {
			s := lodging.Stay{
				ID:           "stay-" + uuid.NewString(),
				PropertyID:   tx.PropertyID(),
				GroupID:      booking.GroupID,
				GuestID:      guestID,
				CabinID:      cabinID,
				CheckIn:      req.CheckIn,
				CheckOut:     req.CheckOut,
				Status:       lodging.StayPending,
				AccessCode:   code,
				HasOpenFolio: req.HasOpenFolio,
				Adults:       req.Adults,
				Children:     req.Children,
				Notes:        req.Notes,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.Create(ctx, lodging.CollectionStays, s.ID, &s); err != nil {
				return fmt.Errorf("creating stay: %w", err)
			}
			tx.Audit(audit.AuditLog{
				Action:     "stay.book",
				EntityType: "stay",
				EntityID:   s.ID,
				Details: map[string]any{
					"cabin_id":  cabinID,
					"guest_id":  guestID,
					"check_in":  req.CheckIn,
					"check_out": req.CheckOut,
					"group_id":  booking.GroupID,
				},
			})

			if m.automation != nil && m.automation.Fire(ctx, tx, s.ID, automation.EventBookingConfirmed) != nil {
				s.AutomationFlags.PreCheckinSent = true
				s.UpdatedAt = now
				if err := tx.Update(ctx, lodging.CollectionStays, s.ID, &s); err != nil {
					return fmt.Errorf("flagging stay %s: %w", s.ID, err)
				}
			}

			booking.Stays = append(booking.Stays, s)
			*events = append(*events, stayEvent(tx, lodging.EventStayBooked, &s, map[string]any{"groupId": booking.GroupID}))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("stay booked", "property_id", propertyID, "stays", len(booking.Stays), "group_id", booking.GroupID)
	return booking, nil
}

func (m *Manager) resolveGuest(ctx context.Context, tx store.Tx, req BookingRequest) (string, error) {
	if req.GuestID != "" {
		if _, err := tx.Get(ctx, lodging.CollectionGuests, req.GuestID); err != nil {
			return "", fmt.Errorf("guest %s: %w", req.GuestID, err)
		}
		return req.GuestID, nil
	}

	now := tx.Now()
	g := &lodging.Guest{
		ID:         "guest-" + uuid.NewString(),
		PropertyID: tx.PropertyID(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	mergeGuest(g, GuestUpdate(*req.Guest))
	if err := tx.Create(ctx, lodging.CollectionGuests, g.ID, g); err != nil {
		return "", fmt.Errorf("creating guest: %w", err)
	}
	tx.Audit(audit.AuditLog{
		Action:     "guest.create",
		EntityType: "guest",
		EntityID:   g.ID,
	})
	return g.ID, nil
}

// ensureBookable rejects unknown cabins and cabins with a live stay whose
// dates overlap [checkIn, checkOut).
func ensureBookable(ctx context.Context, tx store.Tx, cabinID, checkIn, checkOut string) error {
	if _, err := tx.Get(ctx, lodging.CollectionCabins, cabinID); err != nil {
		return fmt.Errorf("cabin %s: %w", cabinID, err)
	}
	live, err := store.Query[lodging.Stay](ctx, tx, lodging.CollectionStays,
		store.Eq("cabinId", cabinID),
		store.In("status", lodging.StayPending, lodging.StayPreCheckinDone, lodging.StayActive),
	)
	if err != nil {
		return fmt.Errorf("checking cabin %s availability: %w", cabinID, err)
	}
	for i := range live {
		if live[i].Overlaps(checkIn, checkOut) {
			return fmt.Errorf("%w: cabin %s is booked %s to %s by stay %s",
				lodging.ErrCabinUnavailable, cabinID, live[i].CheckIn, live[i].CheckOut, live[i].ID)
		}
	}
	return nil
}

// GuestUpdate is GuestInput without required fields, for partial merges.
type GuestUpdate struct {
	FirstName   string `json:"firstName,omitempty" validate:"max=100"`
	LastName    string `json:"lastName,omitempty" validate:"max=100"`
	Phone       string `json:"phone,omitempty" validate:"max=32"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Document    string `json:"document,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	BirthDate   string `json:"birthDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func mergeGuest(g *lodging.Guest, in GuestUpdate) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&g.FirstName, in.FirstName)
	set(&g.LastName, in.LastName)
	set(&g.Phone, in.Phone)
	set(&g.Email, in.Email)
	set(&g.Document, in.Document)
	set(&g.Nationality, in.Nationality)
	set(&g.BirthDate, in.BirthDate)
}

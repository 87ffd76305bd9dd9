package lodging

import (
	"fmt"
	"strings"
	"time"
)

// Collections in the document store.
const (
	CollectionStays  = "stays"
	CollectionGuests = "guests"
	CollectionCabins = "cabins"
	CollectionTasks  = "housekeeping_tasks"
)

// DateLayout is the wire format of check-in and check-out dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: expected YYYY-MM-DD", ErrInvalidInput, s)
	}
	return d, nil
}

// Stay is one guest's occupancy of one cabin for one date range.
type Stay struct {
	ID              string          `json:"id"`
	PropertyID      string          `json:"propertyId"`
	GroupID         string          `json:"groupId,omitempty"`
	GuestID         string          `json:"guestId"`
	CabinID         string          `json:"cabinId"`
	CheckIn         string          `json:"checkIn"`
	CheckOut        string          `json:"checkOut"`
	Status          StayStatus      `json:"status"`
	AccessCode      string          `json:"accessCode"`
	HasOpenFolio    bool            `json:"hasOpenFolio"`
	AutomationFlags AutomationFlags `json:"automationFlags"`

	Adults           int    `json:"adults,omitempty"`
	Children         int    `json:"children,omitempty"`
	EstimatedArrival string `json:"estimatedArrival,omitempty"`
	VehiclePlate     string `json:"vehiclePlate,omitempty"`
	Notes            string `json:"notes,omitempty"`

	CheckedInAt       *time.Time `json:"checkedInAt,omitempty"`
	CheckedOutAt      *time.Time `json:"checkedOutAt,omitempty"`
	PreCheckinAt      *time.Time `json:"preCheckinAt,omitempty"`
	CancelledAt       *time.Time `json:"cancelledAt,omitempty"`
	ArchivedAt        *time.Time `json:"archivedAt,omitempty"`
	CancellationNotes string     `json:"cancellationNotes,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Overlaps reports whether the stay's [checkIn, checkOut) range intersects
// [checkIn, checkOut). Dates are compared as YYYY-MM-DD strings.
func (s *Stay) Overlaps(checkIn, checkOut string) bool {
	return s.CheckIn < checkOut && checkIn < s.CheckOut
}

// AutomationFlags record which pre-arrival triggers have fired for a stay.
type AutomationFlags struct {
	Send48h        bool `json:"send48h"`
	Send24h        bool `json:"send24h"`
	PreCheckinSent bool `json:"preCheckinSent"`
	RemindersCount int  `json:"remindersCount"`
}

// Guest is the person a stay is booked for.
type Guest struct {
	ID          string    `json:"id"`
	PropertyID  string    `json:"propertyId"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Document    string    `json:"document,omitempty"`
	Nationality string    `json:"nationality,omitempty"`
	BirthDate   string    `json:"birthDate,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FullName joins first and last name.
func (g *Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

// Contact returns the address automated messages go to: the phone number
// when present, otherwise the e-mail. Empty means unreachable.
func (g *Guest) Contact() string {
	if p := strings.TrimSpace(g.Phone); p != "" {
		return p
	}
	return strings.TrimSpace(g.Email)
}

// Cabin is a bookable physical unit.
type Cabin struct {
	ID            string      `json:"id"`
	PropertyID    string      `json:"propertyId"`
	Name          string      `json:"name"`
	Status        CabinStatus `json:"status"`
	CurrentStayID string      `json:"currentStayId,omitempty"`
	Capacity      int         `json:"capacity,omitempty"`
	WifiSSID      string      `json:"wifiSsid,omitempty"`
	WifiPassword  string      `json:"wifiPassword,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// ChecklistItem is one line of a housekeeping checklist.
type ChecklistItem struct {
	ID      string `json:"id" validate:"required"`
	Label   string `json:"label" validate:"required"`
	Checked bool   `json:"checked"`
}

// HousekeepingTask is one unit of cleaning or servicing work on a cabin.
type HousekeepingTask struct {
	ID           string          `json:"id"`
	PropertyID   string          `json:"propertyId"`
	CabinID      string          `json:"cabinId"`
	StayID       string          `json:"stayId,omitempty"`
	Type         TaskType        `json:"type"`
	Status       TaskStatus      `json:"status"`
	AssignedTo   []string        `json:"assignedTo"`
	Checklist    []ChecklistItem `json:"checklist"`
	Observations string          `json:"observations,omitempty"`
	ReworkCount  int             `json:"reworkCount,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	ConferredAt *time.Time `json:"conferredAt,omitempty"`
	ConferredBy string     `json:"conferredBy,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

// AddObservation appends a note on its own line.
func (t *HousekeepingTask) AddObservation(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if t.Observations == "" {
		t.Observations = note
		return
	}
	t.Observations += "\n" + note
}

// ChecklistProgress returns how many items are checked out of the total.
func (t *HousekeepingTask) ChecklistProgress() (checked, total int) {
	for _, item := range t.Checklist {
		if item.Checked {
			checked++
		}
	}
	return checked, len(t.Checklist)
}

// DefaultTurnoverChecklist seeds every turnover task created on check-out.
func DefaultTurnoverChecklist() []ChecklistItem {
	return []ChecklistItem{
		{ID: "beds", Label: "Strip and remake beds"},
		{ID: "bathroom", Label: "Clean and sanitise bathroom"},
		{ID: "towels", Label: "Replace towels and linen"},
		{ID: "kitchen", Label: "Clean kitchenette and dishes"},
		{ID: "floors", Label: "Sweep and mop floors"},
		{ID: "amenities", Label: "Restock amenities"},
		{ID: "inspection", Label: "Check for damage and lost items"},
	}
}

// DefaultDailyChecklist seeds ad-hoc daily tasks that arrive without one.
func DefaultDailyChecklist() []ChecklistItem {
	return []ChecklistItem{
		{ID: "beds", Label: "Make beds"},
		{ID: "towels", Label: "Swap used towels"},
		{ID: "trash", Label: "Empty bins"},
	}
}

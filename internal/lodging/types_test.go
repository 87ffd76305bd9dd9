package lodging

import (
	"errors"
	"strings"
	"testing"
)

func TestStay_Overlaps(t *testing.T) {
	s := &Stay{CheckIn: "2025-06-10", CheckOut: "2025-06-13"}
	tests := []struct {
		in, out string
		want    bool
	}{
		{"2025-06-13", "2025-06-15", false}, // back-to-back arrival on departure day
		{"2025-06-08", "2025-06-10", false},
		{"2025-06-12", "2025-06-14", true},
		{"2025-06-09", "2025-06-11", true},
		{"2025-06-11", "2025-06-12", true},
		{"2025-06-01", "2025-06-30", true},
	}
	for _, tt := range tests {
		if got := s.Overlaps(tt.in, tt.out); got != tt.want {
			t.Errorf("Overlaps(%s, %s) = %v, want %v", tt.in, tt.out, got, tt.want)
		}
	}
}

func TestGuest_Contact(t *testing.T) {
	tests := []struct {
		guest Guest
		want  string
	}{
		{Guest{Phone: "+5511999990000", Email: "a@b.c"}, "+5511999990000"},
		{Guest{Phone: "  ", Email: "a@b.c"}, "a@b.c"},
		{Guest{}, ""},
	}
	for _, tt := range tests {
		if got := tt.guest.Contact(); got != tt.want {
			t.Errorf("Contact() = %q, want %q", got, tt.want)
		}
	}

	g := Guest{FirstName: "Maria", LastName: ""}
	if got := g.FullName(); got != "Maria" {
		t.Errorf("FullName() = %q, want Maria", got)
	}
}

func TestHousekeepingTask_Observations(t *testing.T) {
	var task HousekeepingTask
	task.AddObservation("  ")
	if task.Observations != "" {
		t.Errorf("blank note added: %q", task.Observations)
	}
	task.AddObservation("towels missing")
	task.AddObservation("rework required")
	if task.Observations != "towels missing\nrework required" {
		t.Errorf("Observations = %q", task.Observations)
	}

	task.Checklist = []ChecklistItem{{ID: "a", Checked: true}, {ID: "b"}, {ID: "c", Checked: true}}
	if done, total := task.ChecklistProgress(); done != 2 || total != 3 {
		t.Errorf("ChecklistProgress() = %d/%d, want 2/3", done, total)
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2025-06-10"); err != nil {
		t.Errorf("ParseDate(valid) error = %v", err)
	}
	if _, err := ParseDate("10/06/2025"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseDate(invalid) = %v, want ErrInvalidInput", err)
	}
}

func TestValidate(t *testing.T) {
	type req struct {
		Name  string `validate:"required"`
		Email string `validate:"omitempty,email"`
	}
	if err := Validate(req{Name: "x"}); err != nil {
		t.Errorf("Validate(valid) = %v", err)
	}
	err := Validate(req{Email: "nope"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Validate(invalid) = %v, want ErrInvalidInput", err)
	}
	for _, want := range []string{"req.Name failed required", "req.Email failed email"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

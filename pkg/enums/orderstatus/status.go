package orderstatus

import (
	"strings"
)

// Status is one step of the order lifecycle. Rank orders the steps; a
// status may only be replaced by one with a higher rank.
type Status struct {
	Name string
	Rank int
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "-")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// IsZero reports whether s is the unset status.
func (s Status) IsZero() bool {
	return s.Name == ""
}

// Next returns the single forward step from s. ok is false for the
// terminal status and for unknown values.
func (s Status) Next() (next Status, ok bool) {
	for i, candidate := range All {
		if candidate.Name == s.Name && i+1 < len(All) {
			return All[i+1], true
		}
	}
	return Status{}, false
}

// CanAdvanceTo reports whether moving from s to target keeps the order
// moving forward. Skipping steps is allowed, regressions and no-ops are not.
func (s Status) CanAdvanceTo(target Status) bool {
	if ByName(s.Name) == nil || ByName(target.Name) == nil {
		return false
	}
	return target.Rank > s.Rank
}

// IsActive reports whether orders in this status still belong on the
// kitchen board.
func (s Status) IsActive() bool {
	for _, active := range Active {
		if active.Name == s.Name {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s.Name == Statuses.Completed.Name
}

type Enum struct {
	Pending   Status
	Preparing Status
	Ready     Status
	Served    Status
	Completed Status
}

var Statuses = Enum{
	Pending:   Status{Name: "pending", Rank: 1},
	Preparing: Status{Name: "preparing", Rank: 2},
	Ready:     Status{Name: "ready", Rank: 3},
	Served:    Status{Name: "served", Rank: 4},
	Completed: Status{Name: "completed", Rank: 5},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Preparing,
	Statuses.Ready,
	Statuses.Served,
	Statuses.Completed,
}

// Active lists the statuses rendered as kitchen board lanes, in lane order.
var Active = []Status{
	Statuses.Pending,
	Statuses.Preparing,
	Statuses.Ready,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// Parse is ByName for callers that want the value and an ok flag.
func Parse(name string) (Status, bool) {
	s := ByName(strings.ToLower(strings.TrimSpace(name)))
	if s == nil {
		return Status{}, false
	}
	return *s, true
}

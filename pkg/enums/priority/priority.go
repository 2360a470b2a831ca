package priority

import "strings"

// Priority is a display-only urgency tag. It never influences status
// transitions.
type Priority struct {
	Name   string
	Weight int
}

func (p Priority) Code() string {
	return p.Name
}

func (p Priority) Label() string {
	// Capitalize first letter
	if len(p.Name) == 0 {
		return ""
	}
	return strings.ToUpper(p.Name[:1]) + p.Name[1:]
}

type Enum struct {
	High   Priority
	Normal Priority
}

var Priorities = Enum{
	High:   Priority{Name: "high", Weight: 10},
	Normal: Priority{Name: "normal", Weight: 1},
}

var All = []Priority{
	Priorities.High,
	Priorities.Normal,
}

// ByName returns the priority for a given name, or nil if not found
func ByName(name string) *Priority {
	for _, p := range All {
		if p.Name == name {
			return &p
		}
	}
	return nil
}

// WeightOf returns the sort weight for a priority code; unknown codes sort
// as normal.
func WeightOf(name string) int {
	if p := ByName(name); p != nil {
		return p.Weight
	}
	return Priorities.Normal.Weight
}

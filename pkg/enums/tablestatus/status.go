package tablestatus

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

type Enum struct {
	Available   Status
	Occupied    Status
	Reserved    Status
	Unavailable Status
}

var Statuses = Enum{
	Available:   Status{Name: "available"},
	Occupied:    Status{Name: "occupied"},
	Reserved:    Status{Name: "reserved"},
	Unavailable: Status{Name: "unavailable"},
}

var All = []Status{
	Statuses.Available,
	Statuses.Occupied,
	Statuses.Reserved,
	Statuses.Unavailable,
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

// AcceptsOrders reports whether diners seated at a table in this status may
// submit orders.
func (s Status) AcceptsOrders() bool {
	return s.Name != Statuses.Unavailable.Name
}

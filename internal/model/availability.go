package model

// DayAvailability is one weekday row of a tutor's weekly template. From is
// the sole bookable start time for the day; To is kept for the profile UI
// but does not generate additional slots.
type DayAvailability struct {
	Weekday   string `json:"weekday"`
	Available bool   `json:"available"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// WeeklyTemplate maps lowercase weekday names to that day's availability.
type WeeklyTemplate map[string]DayAvailability

type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "available"
	AvailabilityUnavailable AvailabilityStatus = "unavailable"
)

// TutorAvailability is the classification attached to a tutor for listing
// and search filtering.
type TutorAvailability struct {
	Status                    AvailabilityStatus `json:"availability_status"`
	IsFullyBookedIndividually bool               `json:"is_fully_booked_individually"`
	HasIndividualBookings     bool               `json:"has_individual_bookings"`
	HasGroupBookings          bool               `json:"has_group_bookings"`
}

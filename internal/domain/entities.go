package domain

// EventForm is the user-editable part of the page.
type EventForm struct {
	EventName   string  `json:"eventName"`
	MaxCapacity int64   `json:"maxCapacity"`
	Deposit     float64 `json:"deposit"`
}

// EventRecord is an event as returned by the registry. It is never built
// locally, only decoded from create_event and rsvp responses.
type EventRecord struct {
	UniqueID    string  `json:"uniqueId" bson:"unique_id"`
	Name        string  `json:"name" bson:"name"`
	MaxCapacity int64   `json:"maxCapacity" bson:"max_capacity"`
	Deposit     float64 `json:"deposit" bson:"deposit"`
}

type UIState struct {
	Loading                bool `json:"loading"`
	EventCreationConfirmed bool `json:"eventCreationConfirmed"`
	RSVPConfirmed          bool `json:"rsvpConfirmed"`
}

type Action string

const (
	ActionCreate Action = "create"
	ActionRSVP   Action = "rsvp"
)

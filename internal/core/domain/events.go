package domain

import "sort"

// TaxonomyVersion is bumped whenever an event is added to the catalogue.
// Removing or renaming an event is a breaking change for every connected client.
const TaxonomyVersion = 1

// EventName identifies a server-pushed event.
type EventName string

const (
	EventStatsUpdated       EventName = "stats:updated"
	EventChatMessage        EventName = "chat:message"
	EventMaintenanceCreated EventName = "maintenance:created"
	EventMaintenanceUpdated EventName = "maintenance:updated"
	EventMemberPending      EventName = "member:pending"
	EventMemberApproved     EventName = "member:approved"
	EventNotification       EventName = "notification"
)

// EventScope says who an event may be addressed to.
type EventScope int

const (
	// ScopeRoom events go to every connection subscribed to one community.
	ScopeRoom EventScope = iota + 1
	// ScopePrincipal events go to the single connection bound to one user.
	ScopePrincipal
)

func (s EventScope) String() string {
	switch s {
	case ScopeRoom:
		return "room"
	case ScopePrincipal:
		return "principal"
	default:
		return "unknown"
	}
}

// EventSpec describes one catalogue entry.
type EventSpec struct {
	Name  EventName
	Scope EventScope
	Since int
}

var catalogue = map[EventName]EventSpec{
	EventStatsUpdated:       {Name: EventStatsUpdated, Scope: ScopeRoom, Since: 1},
	EventChatMessage:        {Name: EventChatMessage, Scope: ScopeRoom, Since: 1},
	EventMaintenanceCreated: {Name: EventMaintenanceCreated, Scope: ScopeRoom, Since: 1},
	EventMaintenanceUpdated: {Name: EventMaintenanceUpdated, Scope: ScopeRoom, Since: 1},
	EventMemberPending:      {Name: EventMemberPending, Scope: ScopeRoom, Since: 1},
	EventMemberApproved:     {Name: EventMemberApproved, Scope: ScopeRoom, Since: 1},
	EventNotification:       {Name: EventNotification, Scope: ScopePrincipal, Since: 1},
}

// LookupEvent returns the catalogue entry for name.
func LookupEvent(name EventName) (EventSpec, bool) {
	spec, ok := catalogue[name]
	return spec, ok
}

// Events returns the full catalogue sorted by name.
func Events() []EventSpec {
	specs := make([]EventSpec, 0, len(catalogue))
	for _, spec := range catalogue {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// StatsType names the counter family that changed in a stats:updated event.
type StatsType string

const (
	StatsMessages    StatsType = "messages"
	StatsMaintenance StatsType = "maintenance"
	StatsMembers     StatsType = "members"
)

// StatsUpdatedPayload is the payload of stats:updated.
type StatsUpdatedPayload struct {
	Type StatsType `json:"type"`
}

// NotificationPayload is the payload of a principal-scoped notification.
type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Link  string `json:"link,omitempty"`
}

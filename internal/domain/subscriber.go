// Package domain defines the back-office records (subscribers, payment
// transactions, income and expense ledger entries) shared by the engines,
// the services and the storage adapters.
package domain

import "strings"

// UnknownLabel is the bucket used whenever a grouping or lookup field is missing.
const UnknownLabel = "Unknown"

// ServiceType is the access technology a subscriber is provisioned on.
type ServiceType string

const (
	ServicePPPoE   ServiceType = "PPPoE"
	ServiceHotspot ServiceType = "Hotspot"
)

// ============================================================
// Subscribers
// ============================================================

// Subscriber is a PPPoE or Hotspot account. Username is unique within a
// service type; later writes overwrite earlier ones with the same type and
// username.
type Subscriber struct {
	Username  string      `json:"username"`
	Names     string      `json:"names,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Email     string      `json:"email,omitempty"`
	Type      ServiceType `json:"type"`
	Status    string      `json:"status,omitempty"`
	Package   string      `json:"package,omitempty"`
	Location  string      `json:"location,omitempty"`
	Router    string      `json:"router,omitempty"`
	RouterID  string      `json:"routerId,omitempty"`
	Site      string      `json:"site,omitempty"`
	Expiry    string      `json:"expiry,omitempty"`
	CreatedAt string      `json:"createdAt,omitempty"`
}

// Key returns the store key of the subscriber, qualified by service type so a
// PPPoE and a Hotspot account may share a username.
func (s Subscriber) Key() string { return string(s.Type) + "/" + s.Username }

// RouterName prefers the router label and falls back to the router id.
func (s Subscriber) RouterName() string {
	if r := strings.TrimSpace(s.Router); r != "" {
		return r
	}
	return strings.TrimSpace(s.RouterID)
}

// SearchFields are the free-text fields matched by subscriber search.
func (s Subscriber) SearchFields() []string {
	return []string{s.Username, s.Names, s.Phone, s.Email}
}

// Info projects the subscriber onto the attributes used by income projection.
func (s Subscriber) Info() UserInfo {
	return UserInfo{Router: s.RouterName(), Site: s.Site, Type: string(s.Type)}
}

// UserInfo is what a user lookup can tell about a username. Any field may be empty.
type UserInfo struct {
	Router string `json:"router,omitempty"`
	Site   string `json:"site,omitempty"`
	Type   string `json:"type,omitempty"`
}

// SubscriberFilter holds strict equality filters applied before a text query.
// Empty fields match everything.
type SubscriberFilter struct {
	Type     ServiceType `json:"type,omitempty"`
	Status   string      `json:"status,omitempty"`
	Package  string      `json:"package,omitempty"`
	Location string      `json:"location,omitempty"`
	Router   string      `json:"router,omitempty"`
}

// Match reports whether s passes every non-empty filter.
func (f SubscriberFilter) Match(s Subscriber) bool {
	if f.Type != "" && s.Type != f.Type {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Package != "" && s.Package != f.Package {
		return false
	}
	if f.Location != "" && s.Location != f.Location {
		return false
	}
	if f.Router != "" && s.RouterName() != f.Router {
		return false
	}
	return true
}

// OrUnknown returns v, or UnknownLabel when v is blank.
func OrUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return UnknownLabel
	}
	return v
}

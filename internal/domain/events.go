/**
 * @description
 * This file defines the event contracts exchanged with the message broker (RabbitMQ):
 * the change notifications consumed to keep cached admin views fresh, and the audit
 * event published whenever an admin opens a user's full details.
 */
package domain

import "time"

// Routing keys and binding patterns.
const (
	UserDetailsViewedRoutingKey = "admin.user_details.viewed"
)

// ProfileChangedBindings are the routing patterns that invalidate cached admin views.
var ProfileChangedBindings = []string{"profile.*", "booking.*", "payment.*", "helper.*"}

// ProfileChangedEvent is received when any data that feeds an admin view changes.
// Either id may be empty; every present id is invalidated.
type ProfileChangedEvent struct {
	UserID   string `json:"user_id"`
	HelperID string `json:"helper_id,omitempty"`
}

// UserDetailsViewedEvent records an admin reading a user's aggregated details.
type UserDetailsViewedEvent struct {
	EventID  string    `json:"event_id"`
	AdminID  string    `json:"admin_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	Cached   bool      `json:"cached"`
	ViewedAt time.Time `json:"viewed_at"`
}

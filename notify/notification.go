// Package notify turns push payloads into user notifications and routes
// notification clicks back into the application.
package notify

import "encoding/json"

// Defaults used when a push payload omits fields or cannot be parsed at all.
const (
	DefaultTitle = "Budget Hub LV"
	DefaultBody  = "You have a new notification"
	DefaultIcon  = "/logo192.png"
	DefaultTag   = "general"
)

// Notification is a user-visible alert. Tag keys de-duplication at the
// presentation layer; URL is the deep link opened on click.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Tag   string `json:"tag"`
	URL   string `json:"url,omitempty"`
	// RequireInteraction keeps the notification visible until dismissed.
	RequireInteraction bool `json:"-"`
}

// ParsePayload decodes a push payload defensively. A malformed or empty
// payload yields the default notification; provided fields are merged over
// the defaults. It never fails.
func ParsePayload(payload []byte) Notification {
	n := Notification{
		Title: DefaultTitle,
		Body:  DefaultBody,
		Icon:  DefaultIcon,
		Tag:   DefaultTag,
	}
	if len(payload) == 0 {
		return n
	}
	var incoming Notification
	if err := json.Unmarshal(payload, &incoming); err != nil {
		return n
	}
	if incoming.Title != "" {
		n.Title = incoming.Title
	}
	if incoming.Body != "" {
		n.Body = incoming.Body
	}
	if incoming.Icon != "" {
		n.Icon = incoming.Icon
	}
	if incoming.Tag != "" {
		n.Tag = incoming.Tag
	}
	n.URL = incoming.URL
	return n
}

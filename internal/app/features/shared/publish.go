package shared

import "github.com/dalemusser/churchhub/internal/app/system/push"

// Publisher hands a notification to the push dispatcher. Publish must not
// block or fail the request.
type Publisher interface {
	Publish(n push.Notification)
}

// Notify publishes n when p is configured.
func Notify(p Publisher, n push.Notification) {
	if p != nil {
		p.Publish(n)
	}
}

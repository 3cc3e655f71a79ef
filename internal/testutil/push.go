package testutil

import (
	"sync"

	"github.com/dalemusser/churchhub/internal/app/system/push"
)

// Notifications records published push notifications.
type Notifications struct {
	mu   sync.Mutex
	sent []push.Notification
}

func (n *Notifications) Publish(p push.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, p)
}

// Sent returns a copy of everything published so far.
func (n *Notifications) Sent() []push.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]push.Notification(nil), n.sent...)
}

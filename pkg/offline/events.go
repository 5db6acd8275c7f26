package offline

import "sync"

// Resources named in change events.
const (
	ResourceSaisies   = "saisies"
	ResourceChantiers = "chantiers"
	ResourceQueue     = "queue"
)

// ChangeEvent tells subscribers that cached data changed and views should
// refresh. ChantierID/QualiteID narrow the affected scope when known.
type ChangeEvent struct {
	Resource   string
	ChantierID string
	QualiteID  string
}

// ChangeCallback is invoked after every cache-mutating operation.
type ChangeCallback func(ChangeEvent)

type notifier struct {
	mu        sync.RWMutex
	callbacks []ChangeCallback
}

func (n *notifier) subscribe(fn ChangeCallback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.callbacks = append(n.callbacks, fn)
}

func (n *notifier) notify(event ChangeEvent) {
	n.mu.RLock()
	callbacks := append([]ChangeCallback(nil), n.callbacks...)
	n.mu.RUnlock()

	for _, fn := range callbacks {
		fn(event)
	}
}

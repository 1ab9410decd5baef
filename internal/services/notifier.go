package services

import "log"

// Notifier delivers outbound notifications. Delivery is fire-and-forget:
// a failed send must never fail or roll back the ledger mutation that
// triggered it.
type Notifier interface {
	Send(to, subject, body string) error
}

// notifyAsync dispatches a notification in the background and logs failures.
func notifyAsync(n Notifier, to, subject, body string) {
	if n == nil || to == "" {
		return
	}
	go func() {
		if err := n.Send(to, subject, body); err != nil {
			log.Printf("Warning: failed to send notification to %s: %v", to, err)
		}
	}()
}

package qmsauth

import "github.com/MrEthical07/qmsauth/broadcast"

// watchBroadcasts ends the local session when another client logs out. It
// runs until the subscription channel closes.
func (c *Client) watchBroadcasts(events <-chan broadcast.Event) {
	for ev := range events {
		if ev.Origin == c.origin {
			continue
		}
		if !c.endsSession(ev) {
			continue
		}
		if c.teardown(c.ctx, ReasonCrossTab, MetricCrossTabLogout, teardownObserved) {
			c.log.Info("session ended by another client", "origin", ev.Origin, "event", string(ev.Type))
		}
	}
}

func (c *Client) endsSession(ev broadcast.Event) bool {
	switch ev.Type {
	case broadcast.EventLogout:
		return true
	case broadcast.EventStorageRemoved:
		return ev.Key == c.store.AccessTokenKey()
	default:
		return false
	}
}

package client

import "encoding/json"

// dispatcher routes outbound events to registered callbacks.
type dispatcher struct {
	onMessage     func(MessageEvent)
	onMessageRead func(ReadEvent)
	onPresence    func(PresenceEvent)
	onOnlineUsers func(OnlineUsersEvent)
	onError       func(error)
}

func (d *dispatcher) dispatch(out outbound) {
	if out.Type == outboundError && out.Error != nil {
		d.fireError(fromWireError(out.Error))
		return
	}
	switch out.Event {
	case eventMessage:
		if d.onMessage == nil {
			return
		}
		var ev MessageEvent
		if err := json.Unmarshal(out.Data, &ev); err != nil {
			d.fireError(err)
			return
		}
		d.onMessage(ev)
	case eventMessageRead:
		if d.onMessageRead == nil {
			return
		}
		var ev ReadEvent
		if err := json.Unmarshal(out.Data, &ev); err != nil {
			d.fireError(err)
			return
		}
		d.onMessageRead(ev)
	case eventUserStatusChange, eventUserStatus:
		if d.onPresence == nil {
			return
		}
		var ev PresenceEvent
		if err := json.Unmarshal(out.Data, &ev); err != nil {
			d.fireError(err)
			return
		}
		d.onPresence(ev)
	case eventOnlineUsers:
		if d.onOnlineUsers == nil {
			return
		}
		var ev OnlineUsersEvent
		if err := json.Unmarshal(out.Data, &ev); err != nil {
			d.fireError(err)
			return
		}
		d.onOnlineUsers(ev)
	}
}

func (d *dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}

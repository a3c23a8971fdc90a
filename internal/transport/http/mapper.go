package http

import (
	"encoding/json"

	"github.com/innerview/realtime-server/internal/core"
	"github.com/innerview/realtime-server/internal/proto"
)

func decodeHello(inbound proto.Inbound) (proto.HelloData, error) {
	var hello proto.HelloData
	err := json.Unmarshal(inbound.Data, &hello)
	return hello, err
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.ConversationID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "conversation_id is required"}, nil
		}
		return &core.Command{
			Kind:           core.CommandSendMessage,
			ConversationID: msg.ConversationID,
			Body:           msg.Text,
		}, nil, nil
	case proto.InboundTypeMarkRead:
		var read proto.MarkReadData
		if err := json.Unmarshal(inbound.Data, &read); err != nil {
			return nil, nil, err
		}
		if read.MessageID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "message_id is required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandMarkRead,
			MessageID: read.MessageID,
		}, nil, nil
	case proto.InboundTypeGetUserStatus:
		var query proto.GetUserStatusData
		if err := json.Unmarshal(inbound.Data, &query); err != nil {
			return nil, nil, err
		}
		if query.UserID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user_id is required"}, nil
		}
		return &core.Command{
			Kind:   core.CommandGetUserStatus,
			UserID: query.UserID,
		}, nil, nil
	case proto.InboundTypeGetOnlineUsers:
		return &core.Command{Kind: core.CommandGetOnlineUsers}, nil, nil
	case proto.InboundTypeHello:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "already authenticated"}, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data:  eventMessage(event.Message),
		}
	case core.EventMessageRead:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessageRead,
			Data: proto.EventMessageRead{
				MessageID:      event.Message.ID,
				ConversationID: event.Message.ConversationID,
				ReaderID:       event.ReaderID,
				TS:             event.At.Unix(),
			},
		}
	case core.EventUserStatusChange:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserStatusChange,
			Data: proto.EventUserStatus{
				UserID: event.Presence.UserID,
				Status: string(event.Presence.Status),
				TS:     event.Presence.LastSeen.Unix(),
			},
		}
	case core.EventUserStatus:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserStatus,
			Data: proto.EventUserStatus{
				UserID: event.Presence.UserID,
				Status: string(event.Presence.Status),
				TS:     event.Presence.LastSeen.Unix(),
			},
		}
	case core.EventOnlineUsers:
		userIDs := event.Online
		if userIDs == nil {
			userIDs = []int64{}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameOnlineUsers,
			Data: proto.EventOnlineUsers{
				UserIDs: userIDs,
				TS:      event.At.Unix(),
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventMessage(msg core.Message) proto.EventMessage {
	out := proto.EventMessage{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		AuthorID:       msg.AuthorID,
		Text:           msg.Body,
		TS:             msg.CreatedAt.Unix(),
	}
	if msg.ReadAt != nil {
		ts := msg.ReadAt.Unix()
		out.ReadAt = &ts
	}
	return out
}

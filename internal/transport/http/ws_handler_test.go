package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/innerview/realtime-server/internal/proto"
	"github.com/innerview/realtime-server/internal/store"
)

type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func dialWS(t *testing.T, ctx context.Context, env *testEnv) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(env.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendInbound(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", msgType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", msgType, err)
	}
}

// readEvent reads frames until one with the given event name arrives
// and decodes its data into out.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, out any) {
	t.Helper()

	for {
		var frame wireOutbound
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read while waiting for %s: %v", event, err)
		}
		if frame.Type == proto.OutboundTypeEvent && frame.Event == event {
			if out != nil {
				if err := json.Unmarshal(frame.Data, out); err != nil {
					t.Fatalf("unmarshal %s data: %v", event, err)
				}
			}
			return
		}
	}
}

func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		var frame wireOutbound
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read while waiting for error: %v", err)
		}
		if frame.Type == proto.OutboundTypeError {
			return frame.Error
		}
	}
}

func connectUser(t *testing.T, ctx context.Context, env *testEnv, token string) *websocket.Conn {
	t.Helper()

	conn := dialWS(t, ctx, env)
	sendInbound(t, ctx, conn, proto.InboundTypeHello, proto.HelloData{Token: token, Protocol: proto.ProtocolVersion})

	// The online snapshot confirms the handshake went through.
	readEvent(t, ctx, conn, proto.EventNameOnlineUsers, nil)
	return conn
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env)
	sendInbound(t, ctx, conn, proto.InboundTypeHello, proto.HelloData{Token: "garbage"})

	werr := readError(t, ctx, conn)
	if werr == nil || werr.Code != "unauthorized" {
		t.Fatalf("expected unauthorized error, got %+v", werr)
	}
}

func TestWebSocketRejectsNonHelloFirstFrame(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env)
	sendInbound(t, ctx, conn, proto.InboundTypeMsg, proto.MsgData{ConversationID: 1, Text: "hi"})

	werr := readError(t, ctx, conn)
	if werr == nil || werr.Code != "unauthorized" {
		t.Fatalf("expected unauthorized error, got %+v", werr)
	}
}

func TestWebSocketMessageExchange(t *testing.T) {
	env := startTestServer(t)

	practitionerToken, practitioner := env.registerUser(t, "dr-smith", store.RolePractitioner)
	clientToken, client := env.registerUser(t, "jane", store.RoleClient)

	conv, err := env.st.CreateConversation(context.Background(), practitioner.ID, client.ID)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	practitionerConn := connectUser(t, ctx, env, practitionerToken)
	clientConn := connectUser(t, ctx, env, clientToken)

	// The practitioner sees the client come online.
	var status proto.EventUserStatus
	readEvent(t, ctx, practitionerConn, proto.EventNameUserStatusChange, &status)
	if status.UserID != client.ID || status.Status != "online" {
		t.Fatalf("unexpected presence event: %+v", status)
	}

	sendInbound(t, ctx, practitionerConn, proto.InboundTypeMsg, proto.MsgData{ConversationID: conv.ID, Text: "how are you?"})

	var delivered proto.EventMessage
	readEvent(t, ctx, clientConn, proto.EventNameMessage, &delivered)
	if delivered.AuthorID != practitioner.ID || delivered.Text != "how are you?" || delivered.ConversationID != conv.ID {
		t.Fatalf("unexpected message payload: %+v", delivered)
	}
	if delivered.ID == 0 {
		t.Fatal("delivered message must carry a persisted id")
	}

	// The sender receives the echo as delivery confirmation.
	var echo proto.EventMessage
	readEvent(t, ctx, practitionerConn, proto.EventNameMessage, &echo)
	if echo.ID != delivered.ID {
		t.Fatalf("echo id mismatch: %d vs %d", echo.ID, delivered.ID)
	}

	// Read receipt flows back to the author.
	sendInbound(t, ctx, clientConn, proto.InboundTypeMarkRead, proto.MarkReadData{MessageID: delivered.ID})

	var read proto.EventMessageRead
	readEvent(t, ctx, practitionerConn, proto.EventNameMessageRead, &read)
	if read.MessageID != delivered.ID || read.ReaderID != client.ID {
		t.Fatalf("unexpected read event: %+v", read)
	}
}

func TestWebSocketPresenceQueries(t *testing.T) {
	env := startTestServer(t)

	practitionerToken, practitioner := env.registerUser(t, "dr-smith", store.RolePractitioner)
	clientToken, client := env.registerUser(t, "jane", store.RoleClient)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	practitionerConn := connectUser(t, ctx, env, practitionerToken)
	clientConn := connectUser(t, ctx, env, clientToken)

	sendInbound(t, ctx, clientConn, proto.InboundTypeGetUserStatus, proto.GetUserStatusData{UserID: practitioner.ID})

	var status proto.EventUserStatus
	readEvent(t, ctx, clientConn, proto.EventNameUserStatus, &status)
	if status.UserID != practitioner.ID || status.Status != "online" {
		t.Fatalf("unexpected status answer: %+v", status)
	}

	sendInbound(t, ctx, practitionerConn, proto.InboundTypeGetOnlineUsers, struct{}{})

	var online proto.EventOnlineUsers
	readEvent(t, ctx, practitionerConn, proto.EventNameOnlineUsers, &online)
	seen := make(map[int64]bool)
	for _, id := range online.UserIDs {
		seen[id] = true
	}
	if !seen[practitioner.ID] || !seen[client.ID] {
		t.Fatalf("snapshot missing online users: %v", online.UserIDs)
	}

	// Disconnect fans out an offline transition.
	_ = clientConn.Close(websocket.StatusNormalClosure, "bye")

	var offline proto.EventUserStatus
	for {
		readEvent(t, ctx, practitionerConn, proto.EventNameUserStatusChange, &offline)
		if offline.UserID == client.ID && offline.Status == "offline" {
			break
		}
	}
}

func TestWebSocketErrorsAreScopedToSender(t *testing.T) {
	env := startTestServer(t)

	practitionerToken, practitioner := env.registerUser(t, "dr-smith", store.RolePractitioner)
	clientToken, client := env.registerUser(t, "jane", store.RoleClient)

	conv, err := env.st.CreateConversation(context.Background(), practitioner.ID, client.ID)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	practitionerConn := connectUser(t, ctx, env, practitionerToken)
	clientConn := connectUser(t, ctx, env, clientToken)

	sendInbound(t, ctx, clientConn, proto.InboundTypeMsg, proto.MsgData{ConversationID: conv.ID, Text: "   "})

	werr := readError(t, ctx, clientConn)
	if werr == nil || werr.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %+v", werr)
	}

	// The other participant keeps working.
	sendInbound(t, ctx, practitionerConn, proto.InboundTypeMsg, proto.MsgData{ConversationID: conv.ID, Text: "still here"})

	var delivered proto.EventMessage
	readEvent(t, ctx, clientConn, proto.EventNameMessage, &delivered)
	if delivered.Text != "still here" {
		t.Fatalf("unexpected message: %+v", delivered)
	}
}

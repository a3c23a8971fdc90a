// Command ws_smoke connects to a running server with the realtime
// client, sends one message and prints everything it receives. Useful
// for poking at a local instance:
//
//	go run ./scripts/ws_smoke -token "$TOKEN" -conversation 1 -text "ping"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/innerview/realtime-server/client"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "JWT token (register via POST /api/register)")
	conversation := flag.Int64("conversation", 0, "conversation id to send into")
	text := flag.String("text", "hello from smoke test", "message text to send")
	peer := flag.Int64("peer", 0, "user id to query presence for")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("-token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg := client.DefaultConfig()
	cfg.URL = *addr
	cfg.Token = *token
	cfg.Reconnect = false

	c := client.NewClient(cfg)
	c.OnMessage(func(ev client.MessageEvent) {
		fmt.Printf("message id=%d conversation=%d author=%d text=%q\n", ev.ID, ev.ConversationID, ev.AuthorID, ev.Text)
	})
	c.OnMessageRead(func(ev client.ReadEvent) {
		fmt.Printf("read message=%d reader=%d\n", ev.MessageID, ev.ReaderID)
	})
	c.OnPresence(func(ev client.PresenceEvent) {
		fmt.Printf("presence user=%d status=%s\n", ev.UserID, ev.Status)
	})
	c.OnOnlineUsers(func(ev client.OnlineUsersEvent) {
		fmt.Printf("online users: %v\n", ev.UserIDs)
	})
	c.OnError(func(err error) {
		fmt.Printf("error: %v\n", err)
	})

	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer c.Close()

	if *peer != 0 {
		if err := c.RequestUserStatus(ctx, *peer); err != nil {
			return fmt.Errorf("request status: %w", err)
		}
	}
	if *conversation != 0 {
		if err := c.SendMessage(ctx, *conversation, *text); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}

	<-ctx.Done()
	return nil
}

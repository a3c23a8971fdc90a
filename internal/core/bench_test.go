package core

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkPresenceBroadcast(b *testing.B, observers int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	clients := make([]*Client, 0, observers)
	for i := range observers {
		c := NewClient(fmt.Sprintf("obs-%d", i), int64(100+i), "observer", 0)
		hub.RegisterClient(c)
		clients = append(clients, c)
	}

	// Drain events for all but the first observer to avoid channel backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}
	// Swallow our own transition, the initial snapshot and the
	// transitions of the observers registering after us.
	for range observers + 1 {
		<-target.Events
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		flapper := NewClient("flapper", 1, "flapper", 0)
		hub.RegisterClient(flapper)
		hub.UnregisterClient(flapper)
		close(flapper.Commands)
		// One online and one offline transition per flap.
		<-target.Events
		<-target.Events
	}
}

func BenchmarkPresenceBroadcast_10(b *testing.B)  { benchmarkPresenceBroadcast(b, 10) }
func BenchmarkPresenceBroadcast_100(b *testing.B) { benchmarkPresenceBroadcast(b, 100) }
func BenchmarkPresenceBroadcast_500(b *testing.B) { benchmarkPresenceBroadcast(b, 500) }

func benchmarkMessageFanOut(b *testing.B, tabs int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := newFakeStore()
	st.addConversation(1, 1, 2)
	hub := NewHub(st, nil)
	go hub.Run(ctx)

	sender := NewClient("sender", 1, "alice", 0)
	hub.RegisterClient(sender)
	go func() {
		for range sender.Events {
		}
	}()

	recipients := make([]*Client, 0, tabs)
	for i := range tabs {
		c := NewClient(fmt.Sprintf("tab-%d", i), 2, "bob", 0)
		hub.RegisterClient(c)
		recipients = append(recipients, c)
	}

	target := recipients[0]
	for _, c := range recipients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}
	// Own online transition plus the snapshot delivered on register.
	<-target.Events
	<-target.Events

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sender.Commands <- &Command{Kind: CommandSendMessage, ConversationID: 1, Body: "payload"}
		for {
			if ev := <-target.Events; ev.Kind == EventMessage {
				break
			}
		}
	}
}

func BenchmarkMessageFanOut_1(b *testing.B)  { benchmarkMessageFanOut(b, 1) }
func BenchmarkMessageFanOut_10(b *testing.B) { benchmarkMessageFanOut(b, 10) }

package main

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/germanamz/ares/pkg/chats/message"
	"github.com/germanamz/ares/pkg/engine"
)

// sender is the part of *tea.Program the bridge needs.
type sender interface {
	Send(msg tea.Msg)
}

// bridge forwards engine events of one session to the program.
type bridge struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// startBridge launches the event watcher goroutine. It only calls p.Send()
// and never touches model state directly. Events of other sessions are
// ignored.
func startBridge(ctx context.Context, p sender, sessionID string, events *engine.EventBus) *bridge {
	bridgeCtx, cancel := context.WithCancel(ctx)
	b := &bridge{cancel: cancel}

	sub := events.Subscribe(256)

	b.wg.Go(func() {
		defer events.Unsubscribe(sub)
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if ev.SessionID != sessionID {
					continue
				}
				msg := eventMsg(ev)
				if msg == nil || bridgeCtx.Err() != nil {
					continue
				}
				p.Send(msg)
			}
		}
	})

	return b
}

// stop tells the goroutine to exit without waiting for it. A pending
// p.Send only returns once the program loop receives it or Run returns.
func (b *bridge) stop() {
	b.cancel()
}

// wait blocks until the goroutine has exited. Call it after the program's
// Run has returned.
func (b *bridge) wait() {
	b.wg.Wait()
}

// eventMsg converts an engine event into a bubbletea message. Only deltas
// are forwarded; everything else is read from the session when Send returns.
func eventMsg(ev engine.Event) tea.Msg {
	if ev.Kind != engine.EventDelta {
		return nil
	}
	m, ok := ev.Data.(message.Message)
	if !ok {
		return nil
	}
	return deltaMsg{msg: m}
}

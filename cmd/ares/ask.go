package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/germanamz/ares/pkg/attachment"
	"github.com/germanamz/ares/pkg/chats/message"
	"github.com/germanamz/ares/pkg/engine"
)

// runAsk sends one prompt and streams the reply to out as it arrives.
func runAsk(ctx context.Context, eng *engine.Engine, prompt string, attachPaths []string, out io.Writer) error {
	files := make([]attachment.File, 0, len(attachPaths))
	for _, p := range attachPaths {
		f, err := eng.LoadAttachment(p)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	sess := eng.NewSession()
	w := &replyWriter{out: out}

	sub := sess.Events().Subscribe(256)
	var wg sync.WaitGroup
	wg.Go(func() {
		for ev := range sub.C {
			if ev.SessionID != sess.ID() || ev.Kind != engine.EventDelta {
				continue
			}
			if m, ok := ev.Data.(message.Message); ok {
				w.write(m.TextContent())
			}
		}
	})

	reply, err := sess.Send(ctx, prompt, files...)

	sess.Events().Unsubscribe(sub)
	wg.Wait()

	// Deltas dropped by a full subscription are caught up here.
	w.write(reply.TextContent())
	if w.err != nil {
		return w.err
	}

	if w.n > 0 {
		_, _ = fmt.Fprintln(out)
	}

	if err != nil {
		title, desc := errorNotice(err)
		return fmt.Errorf("%s: %s", title, desc)
	}
	return nil
}

// replyWriter prints the part of a growing reply that was not printed yet.
type replyWriter struct {
	out io.Writer
	n   int // bytes of the reply already written
	err error
}

func (w *replyWriter) write(text string) {
	if w.err != nil || len(text) <= w.n {
		return
	}
	_, w.err = io.WriteString(w.out, text[w.n:])
	w.n = len(text)
}

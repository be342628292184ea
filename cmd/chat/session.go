package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"campusmarket/backend/internal/chatclient"
	"campusmarket/backend/internal/models"
)

const quitCommand = "/quit"

type session struct {
	self string
	view *chatclient.View
	out  io.Writer

	mu      sync.Mutex
	printed map[string]struct{}
}

func newSession(self string, view *chatclient.View, out io.Writer) *session {
	return &session{self: self, view: view, out: out, printed: make(map[string]struct{})}
}

// Run opens the view and sends each input line until in is exhausted, the
// quit command is typed or ctx is done.
func (s *session) Run(ctx context.Context, in io.Reader) error {
	s.view.OnChange(s.show)
	if err := s.view.Open(ctx); err != nil {
		fmt.Fprintf(s.out, "! live updates unavailable: %v\n", err)
	}
	defer s.view.Close()

	if err := s.view.LoadErr(); err != nil {
		fmt.Fprintf(s.out, "! could not load history: %v\n", err)
	}
	s.show(s.view.Messages())

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == quitCommand {
				return nil
			}
			s.view.SetDraft(line)
			if _, err := s.view.Send(ctx); err != nil && !errors.Is(err, chatclient.ErrNothingToSend) {
				fmt.Fprintf(s.out, "! not sent: %v\n", err)
			}
		}
	}
}

// show prints messages not printed before, in list order.
func (s *session) show(msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if _, done := s.printed[m.ID]; done {
			continue
		}
		s.printed[m.ID] = struct{}{}
		who := "them"
		if m.SenderID == s.self {
			who = "me"
		}
		fmt.Fprintf(s.out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), who, m.Content)
	}
}

package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kkslabs/kksbot/pkg/kksbot/channels"
)

func TestReadLoopEmitsMessages(t *testing.T) {
	in := strings.NewReader("hola\n\n  que tal  \n")
	r := New(Config{UserName: "tester", Mention: true, In: in, Out: &bytes.Buffer{}}, nil)

	if err := r.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	var got []*channels.IncomingMessage
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case msg, ok := <-r.Receive():
			if !ok {
				t.Fatalf("stream closed after %d messages, want 2", len(got))
			}
			got = append(got, msg)
		case <-timeout:
			t.Fatal("timed out waiting for messages")
		}
	}

	if got[0].Content != "hola" || got[1].Content != "que tal" {
		t.Errorf("contents = %q, %q, want trimmed lines", got[0].Content, got[1].Content)
	}
	for _, msg := range got {
		if msg.ChatID != ChatID || !msg.MentionsBot || !msg.FromAdmin {
			t.Errorf("message = %+v, want repl chat with mention and admin flags", msg)
		}
		if msg.FromName != "tester" {
			t.Errorf("FromName = %q, want tester", msg.FromName)
		}
	}
}

func TestSendWritesToOutput(t *testing.T) {
	var out bytes.Buffer
	r := New(Config{In: strings.NewReader(""), Out: &out}, nil)
	r.Connect(context.Background())

	if err := r.Send(context.Background(), ChatID, &channels.OutgoingMessage{Content: "dale"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := out.String(); got != "bot> dale\n" {
		t.Errorf("output = %q, want %q", got, "bot> dale\n")
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	r := New(Config{In: strings.NewReader(""), Out: &bytes.Buffer{}}, nil)
	if err := r.Send(context.Background(), ChatID, &channels.OutgoingMessage{Content: "x"}); err == nil {
		t.Error("Send() before Connect error = nil, want error")
	}
}

package bot

import (
	"context"
	"sync"

	"github.com/kkslabs/kksbot/pkg/kksbot/channels"
)

// fakeBackend implements Backend with pluggable behavior.
type fakeBackend struct {
	mu          sync.Mutex
	cred        string
	generateFn  func(ctx context.Context, system, prompt string) (string, error)
	sendFn      func(ctx context.Context, text string) (string, error)
	starts      int
	generates   int
	lastSystem  string
	lastHistory []Turn
}

func (f *fakeBackend) StartChat(ctx context.Context, system string, history []Turn) (Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.lastSystem = system
	f.lastHistory = append([]Turn(nil), history...)
	return &fakeChat{backend: f}, nil
}

func (f *fakeBackend) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	f.generates++
	f.lastSystem = system
	fn := f.generateFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, system, prompt)
	}
	return "ok", nil
}

type fakeChat struct {
	backend *fakeBackend
}

func (c *fakeChat) Send(ctx context.Context, text string) (string, error) {
	c.backend.mu.Lock()
	fn := c.backend.sendFn
	c.backend.mu.Unlock()
	if fn != nil {
		return fn(ctx, text)
	}
	return "respuesta", nil
}

// fakeFactory builds fakeBackends and records which credentials were used.
type fakeFactory struct {
	mu       sync.Mutex
	built    []string
	backends map[string]*fakeBackend
	err      error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{backends: make(map[string]*fakeBackend)}
}

func (f *fakeFactory) factory(ctx context.Context, credential string) (Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.built = append(f.built, credential)
	be, ok := f.backends[credential]
	if !ok {
		be = &fakeBackend{cred: credential}
		f.backends[credential] = be
	}
	return be, nil
}

type sentMessage struct {
	To  string
	Msg channels.OutgoingMessage
}

// fakeChannel is an in-memory channel adapter for pipeline tests.
type fakeChannel struct {
	mu        sync.Mutex
	name      string
	connected bool
	recv      chan *channels.IncomingMessage
	sent      []sentMessage
	typing    int
}

func newFakeChannel(name string) *fakeChannel {
	return &fakeChannel{
		name:      name,
		connected: true,
		recv:      make(chan *channels.IncomingMessage, 16),
	}
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *fakeChannel) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		c.connected = false
		close(c.recv)
	}
	return nil
}

func (c *fakeChannel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeChannel) Receive() <-chan *channels.IncomingMessage { return c.recv }

func (c *fakeChannel) Send(ctx context.Context, to string, msg *channels.OutgoingMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{To: to, Msg: *msg})
	return nil
}

func (c *fakeChannel) SendTyping(ctx context.Context, to string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typing++
	return nil
}

func (c *fakeChannel) sentMessages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sent...)
}

// fakePlayback records playback calls.
type fakePlayback struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *fakePlayback) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.err
}

func (p *fakePlayback) Play(ctx context.Context, channelID, query string) error {
	return p.record("play:" + query)
}
func (p *fakePlayback) Skip(ctx context.Context, channelID string) error  { return p.record("skip") }
func (p *fakePlayback) Stop(ctx context.Context, channelID string) error  { return p.record("stop") }
func (p *fakePlayback) Join(ctx context.Context, channelID string) error  { return p.record("join") }
func (p *fakePlayback) Leave(ctx context.Context, channelID string) error { return p.record("leave") }

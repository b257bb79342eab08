package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/harness/internal/dom"
	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/harness/testbed"
	"github.com/conneroisu/harness/internal/logging"
	"github.com/conneroisu/harness/internal/registry"
	"github.com/conneroisu/harness/internal/scheduler"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 64 << 10
)

// Session is one live instance of a fixture, driven by a single page over a
// websocket. The component state lives in a testbed fixture on the server;
// the page mirrors its markup and forwards DOM events back.
type Session struct {
	ID      string
	Fixture string

	fixture   *testbed.Fixture
	sched     scheduler.Scheduler
	logger    logging.Logger
	dirty     chan struct{}
	stopWatch func()
	attached  atomic.Bool
	closeOnce sync.Once
}

func newSession(ctx context.Context, info *registry.FixtureInfo, sched scheduler.Scheduler, logger logging.Logger) (*Session, error) {
	id := uuid.NewString()
	logger = logger.With("session", id, "fixture", info.Name)

	f, err := testbed.NewFixture(ctx, info.New(),
		testbed.WithScheduler(sched),
		testbed.WithFixtureLogger(logger))
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:      id,
		Fixture: info.Name,
		fixture: f,
		sched:   sched,
		logger:  logger,
		dirty:   make(chan struct{}, 1),
	}
	// The callback can run while the fixture is mid-handler, so it only
	// flags the session for a render.
	s.stopWatch = sched.Watch(func(int) {
		select {
		case s.dirty <- struct{}{}:
		default:
		}
	})
	return s, nil
}

// Close destroys the fixture and cancels its pending tasks.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.stopWatch()
		s.fixture.Destroy()
		s.logger.Debug(context.Background(), "session closed")
	})
}

// Render renders the fixture and returns the markup inside its container.
func (s *Session) Render(ctx context.Context) (string, error) {
	if err := s.fixture.DetectChanges(ctx); err != nil {
		return "", err
	}
	return s.fixture.Document().InnerHTML(s.fixture.Container()), nil
}

func (s *Session) renderMessage(ctx context.Context, ack int64, initial bool) ServerMessage {
	markup, err := s.Render(ctx)
	if err != nil {
		return s.errorMessage(ack, err)
	}
	return ServerMessage{
		Type:    MessageRender,
		Session: s.ID,
		HTML:    markup,
		Pending: s.sched.Pending(),
		Ack:     ack,
		Initial: initial,
		Time:    time.Now(),
	}
}

func (s *Session) errorMessage(ack int64, err error) ServerMessage {
	return ServerMessage{
		Type:    MessageError,
		Session: s.ID,
		Pending: s.sched.Pending(),
		Ack:     ack,
		Error:   err.Error(),
		Time:    time.Now(),
	}
}

// locate resolves a child-index path below the fixture container.
func (s *Session) locate(path []int) (*html.Node, error) {
	doc := s.fixture.Document()
	node := s.fixture.Container()
	for depth, index := range path {
		child := doc.FirstElementChild(node)
		for i := 0; child != nil && i < index; i++ {
			child = nextElementSibling(child)
		}
		if child == nil {
			return nil, errors.NewNoMatchError(fmt.Sprintf("element path %v ends at depth %d", path, depth))
		}
		node = child
	}
	return node, nil
}

func nextElementSibling(n *html.Node) *html.Node {
	for c := n.NextSibling; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Dispatch applies a forwarded DOM event to the fixture. The element's live
// value and checked state are synced from the page before the event runs.
func (s *Session) Dispatch(ctx context.Context, msg ClientMessage) error {
	if msg.Event == "" {
		return errors.NewInvalidOptionValueError("event", "event type must not be empty")
	}
	node, err := s.locate(msg.Path)
	if err != nil {
		return err
	}

	doc := s.fixture.Document()
	if msg.Value != nil {
		doc.SetProperty(node, "value", *msg.Value)
	}
	if msg.Checked != nil {
		doc.SetProperty(node, "checked", *msg.Checked)
	}
	switch msg.Event {
	case "focus":
		doc.Focus(node)
	case "blur":
		doc.Blur(node)
	}

	ev := dom.NewEvent(msg.Event, node)
	ev.Key = msg.Key
	ev.Data = msg.Detail
	return s.fixture.Dispatch(ctx, ev)
}

func (s *Session) reply(ctx context.Context, msg ClientMessage) ServerMessage {
	if msg.Type != "event" {
		return s.errorMessage(msg.Seq, errors.NewInvalidOptionValueError("type", "unknown message type "+msg.Type))
	}
	if err := s.Dispatch(ctx, msg); err != nil {
		s.logger.Warn(ctx, err, "event failed", "event", msg.Event, "path", msg.Path)
		return s.errorMessage(msg.Seq, err)
	}
	return s.renderMessage(ctx, msg.Seq, false)
}

// serve runs the read, write and render loops for conn until the page goes
// away or ctx ends.
func (s *Session) serve(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	send := make(chan ServerMessage, 32)
	send <- ServerMessage{Type: MessageHello, Session: s.ID, Time: time.Now()}
	send <- s.renderMessage(ctx, 0, true)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return writePump(ctx, conn, send) })
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-s.dirty:
			}
			if !enqueue(ctx, send, s.renderMessage(ctx, 0, false)) {
				return nil
			}
		}
	})
	g.Go(func() error {
		defer cancel()
		for {
			var msg ClientMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				return err
			}
			if !enqueue(ctx, send, s.reply(ctx, msg)) {
				return nil
			}
		}
	})

	err := g.Wait()
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func enqueue(ctx context.Context, send chan<- ServerMessage, msg ServerMessage) bool {
	select {
	case send <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, send <-chan ServerMessage) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-send:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(wctx, conn, msg)
			cancel()
			if err != nil {
				return err
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

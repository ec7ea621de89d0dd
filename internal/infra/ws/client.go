package ws

import (
	"context"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	chatservice "talenthub/internal/app/services/chat"
	domainuser "talenthub/internal/domain/user"
)

const sendBuffer = 64

// Client is one live websocket connection. Events are written from a single
// goroutine; Send drops when the buffer is full rather than blocking a
// broadcast (delivery is best effort, the store is the source of truth).
type Client struct {
	userID domainuser.ID
	conn   *websocket.Conn
	send   chan Event

	ctx    context.Context
	cancel context.CancelFunc

	writeTimeout time.Duration
}

func newClient(userID domainuser.ID, conn *websocket.Conn, writeTimeout time.Duration) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Client{
		userID:       userID,
		conn:         conn,
		send:         make(chan Event, sendBuffer),
		ctx:          ctx,
		cancel:       cancel,
		writeTimeout: writeTimeout,
	}
}

func (c *Client) UserID() domainuser.ID { return c.userID }

func (c *Client) Send(event Event) {
	select {
	case c.send <- event:
	default:
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case event := <-c.send:
			writeCtx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
			_ = wsjson.Write(writeCtx, c.conn, event)
			cancel()
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.conn.Ping(pingCtx)
			cancel()
		}
	}
}

// ServeConn runs a connection until it drops: registers the session, pumps
// events both ways and cleans up membership on the way out.
func (g *Gateway) ServeConn(ctx context.Context, conn *websocket.Conn, actor chatservice.Actor, writeTimeout time.Duration) {
	client := newClient(actor.ID, conn, writeTimeout)
	g.Connect(client)
	defer func() {
		g.Disconnect(client)
		client.cancel()
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	go client.writeLoop()
	go client.keepAliveLoop()

	for {
		var evt InboundEvent
		if err := wsjson.Read(ctx, conn, &evt); err != nil {
			return
		}
		g.HandleEvent(ctx, client, actor, evt)
	}
}

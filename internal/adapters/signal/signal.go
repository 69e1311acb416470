package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const (
	DefaultReadLimit  = 32768
	DefaultPingPeriod = 54 * time.Second
	sendBuffer        = 64
	writeWait         = 5 * time.Second
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
}

type SignalWSController struct {
	Orch *orch.Orchestrator
	opts Options
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = DefaultReadLimit
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = DefaultPingPeriod
	}
	return &SignalWSController{Orch: o, opts: opts}
}

// WsSignalConn is one client socket. Frames go through a bounded channel
// drained by the write pump.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

var _ core.SignalConnection = (*WsSignalConn)(nil)

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// client is the per-connection state the handlers need.
type client struct {
	id    core.ConnID
	token string
	conn  *WsSignalConn
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and serves the lobby channel until the
// socket or ctx ends.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")
	// One token may hold several sockets (tabs); each gets its own id.
	cid := core.ConnID(token + "/" + uuid.NewString()[:8])
	log.Info().Str("module", "signal").Str("sid", string(cid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	cl := &client{
		id:    cid,
		token: token,
		conn: &WsSignalConn{
			conn: ws,
			send: make(chan core.Frame, sendBuffer),
		},
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.Bind(cid, cancel)

	go ctl.writePump(ctx, cl)
	go ctl.readPump(ctx, cancel, cl)
}

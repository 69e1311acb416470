package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, cl *client) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	c := cl.conn
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(cl.id)).Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("sid", string(cl.id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(cl.id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(cl.id)).Msg("ping failed")
				return
			}
		}
	}
}

// readPump owns the connection lifetime: when it returns, every
// subscription of the connection is released.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, cl *client) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(cl.id)).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(cl.id)
		cl.conn.Close()
	}()

	ws := cl.conn.conn
	pongWait := ctl.opts.PingPeriod * 10 / 9
	ws.SetReadLimit(ctl.opts.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(cl.id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(cl.id)).Msg("readPump read error")
				}
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(pongWait))
			ctl.handleSignal(cl, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(cl *client, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendBadPayload(cl)
		return
	}

	switch env.Type {
	case TypeSubscribe:
		ctl.handleSubscribe(cl, data)
	case TypeUnsubscribe:
		ctl.handleUnsubscribe(cl, data)
	case TypePlayers:
		ctl.handlePlayers(cl, data)
	case TypeSnapshot:
		ctl.handleSnapshot(cl, data)
	case TypePing:
		ctl.handlePing(cl)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendJSON(cl.conn, errorMsg{Type: TypeError, Error: "unknown_type", Message: env.Type})
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return err
	}
	return c.TrySend(b)
}

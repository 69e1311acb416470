package signal

import (
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(cl *client) {
	ctl.sendJSON(cl.conn, envelope{Type: TypePong})
}

func (ctl *SignalWSController) sendError(cl *client, err error) {
	log.Info().Err(err).Str("module", "signal").Str("sid", string(cl.id)).Msg("request rejected")
	ctl.sendJSON(cl.conn, errorMsg{Type: TypeError, Error: domain.Kind(err), Message: err.Error()})
}

func (ctl *SignalWSController) sendBadPayload(cl *client) {
	ctl.sendJSON(cl.conn, errorMsg{Type: TypeError, Error: "bad_payload"})
}

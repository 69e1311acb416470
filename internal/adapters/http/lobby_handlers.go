package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/gin-gonic/gin"
)

type LobbyHandlers struct {
	Orch *orch.Orchestrator
}

func code(c *gin.Context) domain.SessionCode {
	return domain.SessionCode(c.Param("code"))
}

type createRequest struct {
	HostName string `json:"hostName"`
}

type createResponse struct {
	Code         domain.SessionCode `json:"code"`
	HostMemberID domain.MemberID    `json:"hostMemberId"`
	Version      uint64             `json:"version"`
	Session      domain.SessionView `json:"session"`
}

func (h *LobbyHandlers) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	sess, err := h.Orch.CreateLobby(req.HostName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, createResponse{
		Code:         sess.Code,
		HostMemberID: sess.HostMemberID,
		Version:      sess.Version,
		Session:      sess.View(),
	})
}

func (h *LobbyHandlers) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lobbies": h.Orch.List()})
}

// Preview serves the join screen; a lobby past Open is gone for joiners.
func (h *LobbyHandlers) Preview(c *gin.Context) {
	sess, err := h.Orch.Preview(code(c))
	if errors.Is(err, domain.ErrInvalidState) {
		writeErrorStatus(c, http.StatusGone, err)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

func (h *LobbyHandlers) Snapshot(c *gin.Context) {
	sess, version, err := h.Orch.Snapshot(code(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess.View(), "version": version})
}

type joinRequest struct {
	DisplayName string `json:"displayName"`
}

func (h *LobbyHandlers) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	if err := h.Orch.CheckJoinRate(c.GetString(clientTokenKey)); err != nil {
		writeError(c, err)
		return
	}
	sess, m, err := h.Orch.JoinLobby(code(c), req.DisplayName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": m, "session": sess.View()})
}

type leaveRequest struct {
	MemberID domain.MemberID `json:"memberId"`
}

func (h *LobbyHandlers) Leave(c *gin.Context) {
	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	if _, err := h.Orch.LeaveLobby(code(c), req.MemberID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type hostRequest struct {
	RequesterID domain.MemberID `json:"requesterId"`
}

func (h *LobbyHandlers) Start(c *gin.Context) {
	var req hostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	sess, err := h.Orch.StartGame(code(c), req.RequesterID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess.View()})
}

func (h *LobbyHandlers) End(c *gin.Context) {
	var req hostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	if _, err := h.Orch.EndGame(code(c), req.RequesterID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type resultRequest struct {
	Score       int  `json:"score"`
	DonePlaying bool `json:"donePlaying"`
}

func (h *LobbyHandlers) Result(c *gin.Context) {
	var req resultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	m, err := h.Orch.RecordResult(code(c), domain.MemberID(c.Param("id")), req.Score, req.DonePlaying)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": m})
}

func (h *LobbyHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "lobbies": len(h.Orch.List()), "topics": h.Orch.Events.TopicCount()})
}

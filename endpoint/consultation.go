package endpoint

import (
	"errors"

	"github.com/ariebrainware/medibot/consultation"
	"github.com/ariebrainware/medibot/model"
	"github.com/ariebrainware/medibot/util"
	"github.com/gin-gonic/gin"
)

// ConsultationHandler serves the consultation endpoints on top of a session store.
type ConsultationHandler struct {
	store consultation.Store
}

func NewConsultationHandler(store consultation.Store) *ConsultationHandler {
	return &ConsultationHandler{store: store}
}

type startConsultationRequest struct {
	UserID *uint `json:"user_id"`
}

type consultationMessageRequest struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

type endConsultationRequest struct {
	SessionID string `json:"session_id"`
}

func (h *ConsultationHandler) available(c *gin.Context) bool {
	if h == nil || h.store == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Consultation store not available",
			Err: errors.New("consultation store is nil"),
		})
		return false
	}
	return true
}

func replyConsultationError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, consultation.ErrSessionNotFound):
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Consultation session not found", Err: err})
	case errors.Is(err, consultation.ErrSessionClosed):
		util.CallConflict(c, util.APIErrorParams{Msg: "Consultation session is closed", Err: err})
	case errors.Is(err, consultation.ErrInvalidID):
		util.CallUserError(c, util.APIErrorParams{
			Msg:    "Invalid session_id",
			Err:    err,
			Fields: map[string]string{"session_id": "is not a valid id"},
		})
	case errors.Is(err, consultation.ErrInvalidRole):
		util.CallUserError(c, util.APIErrorParams{
			Msg:    "Invalid role",
			Err:    err,
			Fields: map[string]string{"role": err.Error()},
		})
	default:
		util.CallServerError(c, util.APIErrorParams{Msg: msg, Err: err})
	}
}

// Start handles POST /consultation/start.
func (h *ConsultationHandler) Start(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var req startConsultationRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireID(c, "user_id", req.UserID) {
		return
	}

	session, err := h.store.Start(c.Request.Context(), *req.UserID)
	if err != nil {
		replyConsultationError(c, "Failed to start consultation", err)
		return
	}
	util.CallCreated(c, util.APISuccessParams{Msg: "Consultation started", Data: session})
}

// Message handles POST /consultation/message.
func (h *ConsultationHandler) Message(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var req consultationMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	fields := map[string]string{}
	if req.SessionID == "" {
		fields["session_id"] = "is required"
	}
	if req.Content == "" {
		fields["content"] = "is required"
	}
	if !consultation.ValidRole(req.Role) {
		fields["role"] = consultation.ErrInvalidRole.Error()
	}
	if len(fields) > 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid message", Fields: fields})
		return
	}

	msg, err := h.store.AppendMessage(c.Request.Context(), req.SessionID, model.ConsultationMessage{
		Role:    req.Role,
		Content: req.Content,
	})
	if err != nil {
		replyConsultationError(c, "Failed to append message", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Message recorded", Data: msg})
}

// End handles POST /consultation/end.
func (h *ConsultationHandler) End(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var req endConsultationRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.SessionID == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg:    "session_id is required",
			Fields: map[string]string{"session_id": "is required"},
		})
		return
	}

	session, err := h.store.End(c.Request.Context(), req.SessionID)
	if err != nil {
		replyConsultationError(c, "Failed to end consultation", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Consultation ended", Data: session})
}

// History handles GET /consultation/history?user_id=&limit=.
func (h *ConsultationHandler) History(c *gin.Context) {
	if !h.available(c) {
		return
	}
	userID, ok := requiredUintQuery(c, "user_id")
	if !ok {
		return
	}
	limit, ok := optionalUintQuery(c, "limit")
	if !ok {
		return
	}
	var n int64
	if limit != nil {
		n = int64(*limit)
	}

	sessions, err := h.store.ListByUser(c.Request.Context(), userID, n)
	if err != nil {
		replyConsultationError(c, "Failed to load consultation history", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Consultation history retrieved",
		Data: gin.H{"sessions": sessions, "count": len(sessions)},
	})
}

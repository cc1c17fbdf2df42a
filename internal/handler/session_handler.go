package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hmochat/internal/conversation"
	"github.com/xxxsen/hmochat/internal/pkg/errcode"
	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
	"github.com/xxxsen/hmochat/internal/pkg/jwt"
	"github.com/xxxsen/hmochat/internal/pkg/response"
	"github.com/xxxsen/hmochat/internal/service"
)

var unavailableMessages = map[conversation.Language]string{
	conversation.LangEnglish: "The service is temporarily unavailable. Please try again in a moment.",
	conversation.LangHebrew:  "השירות אינו זמין כרגע. אנא נסה/י שוב בעוד מספר רגעים.",
}

type SessionHandler struct {
	chat     *service.ChatService
	secret   []byte
	tokenTTL time.Duration
}

func NewSessionHandler(chat *service.ChatService, secret []byte, tokenTTL time.Duration) *SessionHandler {
	return &SessionHandler{chat: chat, secret: secret, tokenTTL: tokenTTL}
}

type createSessionResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
	Phase     string `json:"phase"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
	Language  string `json:"language"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	reply, err := h.chat.Create(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	token, err := jwt.GenerateToken(reply.SessionID, h.secret, h.tokenTTL)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, createSessionResponse{
		Token:     token,
		SessionID: reply.SessionID,
		Prompt:    reply.Prompt,
		Phase:     reply.Phase,
	})
}

func (h *SessionHandler) Message(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	reply, err := h.chat.Submit(c.Request.Context(), getSessionID(c), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, reply)
}

func (h *SessionHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Question == "" {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	reply, err := h.chat.Ask(c.Request.Context(), getSessionID(c), req.Question)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, askResponse{SessionID: reply.SessionID, Answer: reply.Prompt, Language: reply.Language})
}

func (h *SessionHandler) State(c *gin.Context) {
	view, err := h.chat.State(c.Request.Context(), getSessionID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

// fail answers the user-facing failures in the session's language.
func (h *SessionHandler) fail(c *gin.Context, err error) {
	var lang conversation.Language
	if view, verr := h.chat.State(c.Request.Context(), getSessionID(c)); verr == nil {
		lang = conversation.Language(view.Language)
	}
	switch {
	case errors.Is(err, appErr.ErrExternalService):
		logError(c, err)
		msg, ok := unavailableMessages[lang]
		if !ok {
			msg = unavailableMessages[conversation.LangEnglish]
		}
		response.Error(c, errcode.ErrAIUnavailable, msg)
	case errors.Is(err, appErr.ErrNotConfirmed):
		logError(c, err)
		response.Error(c, errcode.ErrNotConfirmed, conversation.NotConfirmedMessage(lang))
	default:
		handleError(c, err)
	}
}

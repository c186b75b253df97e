package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/artem13815/cvchat/api/http/presenter"
	"github.com/artem13815/cvchat/pkg/chat"
	"github.com/artem13815/cvchat/pkg/turn"
)

// TurnRunner runs conversation turns; *turn.Orchestrator implements it.
type TurnRunner interface {
	Send(ctx context.Context, conversationID uuid.UUID, content chat.Content) (turn.Result, error)
	SelectSkills(ctx context.Context, conversationID uuid.UUID, toolCallID string, skills []string) (turn.Result, error)
	Greet(ctx context.Context, conversationID uuid.UUID) (turn.Result, error)
}

// ConversationHandler serves conversations, their message logs and turns.
type ConversationHandler struct {
	convs    chat.ConversationRepository
	messages chat.Store
	turns    TurnRunner
	model    string
}

func NewConversationHandler(convs chat.ConversationRepository, messages chat.Store, turns TurnRunner, defaultModel string) *ConversationHandler {
	return &ConversationHandler{convs: convs, messages: messages, turns: turns, model: defaultModel}
}

var errUnauthenticated = errors.New("unauthenticated")

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := c.Locals("userId").(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errUnauthenticated
	}
	return id, nil
}

// ownedConversation resolves :id for the current user. On failure the
// response is already written and ok is false.
func ownedConversation(c *fiber.Ctx, convs chat.ConversationRepository) (conv chat.Conversation, ok bool, err error) {
	owner, err := currentUser(c)
	if err != nil {
		return chat.Conversation{}, false, presenter.Error(c, http.StatusUnauthorized, "unauthenticated")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return chat.Conversation{}, false, presenter.Error(c, http.StatusBadRequest, "invalid conversation id")
	}
	conv, err = convs.GetForOwner(c.Context(), owner, id)
	if err != nil {
		return chat.Conversation{}, false, presenter.Fail(c, err, "failed to load conversation")
	}
	return conv, true, nil
}

type createConversationRequest struct {
	Title string `json:"title"`
	Model string `json:"model"`
}

// Create starts a new conversation with an empty CV.
// @Summary Create conversation
// @Tags    conversations
// @Accept  json
// @Produce json
// @Param   input body createConversationRequest false "conversation header"
// @Security BearerAuth
// @Success 201 {object} chat.Conversation
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Router  /conversations [post]
func (h *ConversationHandler) Create(c *fiber.Ctx) error {
	owner, err := currentUser(c)
	if err != nil {
		return presenter.Error(c, http.StatusUnauthorized, "unauthenticated")
	}
	var req createConversationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
		}
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "My CV"
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.model
	}
	conv, err := h.convs.Create(c.Context(), chat.Conversation{OwnerID: owner, Title: title, Model: model})
	if err != nil {
		return presenter.Fail(c, err, "failed to create conversation")
	}
	return presenter.JSON(c, http.StatusCreated, conv)
}

// List returns the caller's conversations, newest first.
// @Summary List conversations
// @Tags    conversations
// @Produce json
// @Param   limit  query int false "page size (1..200)"
// @Param   offset query int false "offset"
// @Security BearerAuth
// @Success 200 {array} chat.Conversation
// @Failure 401 {object} presenter.ErrorResponse
// @Router  /conversations [get]
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	owner, err := currentUser(c)
	if err != nil {
		return presenter.Error(c, http.StatusUnauthorized, "unauthenticated")
	}
	limit, offset := parseLimitOffset(c, 50)
	list, err := h.convs.ListByOwner(c.Context(), owner, limit, offset)
	if err != nil {
		return presenter.Fail(c, err, "failed to list conversations")
	}
	if list == nil {
		list = []chat.Conversation{}
	}
	return presenter.JSON(c, http.StatusOK, list)
}

// Messages returns the full message log of a conversation.
// @Summary Conversation messages
// @Tags    conversations
// @Produce json
// @Param   id path string true "conversation id"
// @Security BearerAuth
// @Success 200 {array} chat.Message
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /conversations/{id}/messages [get]
func (h *ConversationHandler) Messages(c *fiber.Ctx) error {
	conv, ok, err := ownedConversation(c, h.convs)
	if !ok {
		return err
	}
	msgs, err := h.messages.List(c.Context(), conv.ID)
	if err != nil {
		return presenter.Fail(c, err, "failed to load messages")
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return presenter.JSON(c, http.StatusOK, msgs)
}

type sendRequest struct {
	// Content is a string or an array of text/image_url parts.
	Content chat.Content `json:"content"`
}

// Send appends a user message and runs the turn to completion.
// @Summary Send message
// @Tags    conversations
// @Accept  json
// @Produce json
// @Param   id    path string      true "conversation id"
// @Param   input body sendRequest true "user message"
// @Security BearerAuth
// @Success 200 {object} turn.Result
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 409 {object} presenter.ErrorResponse
// @Failure 502 {object} turn.Result
// @Router  /conversations/{id}/messages [post]
func (h *ConversationHandler) Send(c *fiber.Ctx) error {
	conv, ok, err := ownedConversation(c, h.convs)
	if !ok {
		return err
	}
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	res, err := h.turns.Send(turn.WithModel(c.Context(), conv.Model), conv.ID, req.Content)
	if err != nil {
		return presenter.Fail(c, err, "failed to run turn")
	}
	return presenter.Turn(c, res)
}

// Greet lets the assistant open an empty conversation.
// @Summary Greeting
// @Tags    conversations
// @Produce json
// @Param   id path string true "conversation id"
// @Security BearerAuth
// @Success 200 {object} turn.Result
// @Failure 409 {object} presenter.ErrorResponse
// @Router  /conversations/{id}/greeting [post]
func (h *ConversationHandler) Greet(c *fiber.Ctx) error {
	conv, ok, err := ownedConversation(c, h.convs)
	if !ok {
		return err
	}
	res, err := h.turns.Greet(turn.WithModel(c.Context(), conv.Model), conv.ID)
	if err != nil {
		return presenter.Fail(c, err, "failed to run turn")
	}
	return presenter.Turn(c, res)
}

type selectSkillsRequest struct {
	ToolCallID string   `json:"toolCallId"`
	Skills     []string `json:"skills"`
}

// SelectSkills submits the user's choice in a skill selector widget.
// @Summary Submit skill selection
// @Tags    conversations
// @Accept  json
// @Produce json
// @Param   id    path string              true "conversation id"
// @Param   input body selectSkillsRequest true "selected skills"
// @Security BearerAuth
// @Success 200 {object} turn.Result
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /conversations/{id}/skills [post]
func (h *ConversationHandler) SelectSkills(c *fiber.Ctx) error {
	conv, ok, err := ownedConversation(c, h.convs)
	if !ok {
		return err
	}
	var req selectSkillsRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	if strings.TrimSpace(req.ToolCallID) == "" {
		return presenter.Error(c, http.StatusBadRequest, "toolCallId is required")
	}
	res, err := h.turns.SelectSkills(turn.WithModel(c.Context(), conv.Model), conv.ID, req.ToolCallID, req.Skills)
	if err != nil {
		return presenter.Fail(c, err, "failed to run turn")
	}
	return presenter.Turn(c, res)
}

// DeleteMessage removes one message from the log.
// @Summary Delete message
// @Tags    conversations
// @Param   id        path string true "conversation id"
// @Param   messageId path string true "message id"
// @Security BearerAuth
// @Success 204
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /conversations/{id}/messages/{messageId} [delete]
func (h *ConversationHandler) DeleteMessage(c *fiber.Ctx) error {
	conv, ok, err := ownedConversation(c, h.convs)
	if !ok {
		return err
	}
	if err := h.messages.Delete(c.Context(), conv.ID, c.Params("messageId")); err != nil {
		return presenter.Fail(c, err, "failed to delete message")
	}
	return c.SendStatus(http.StatusNoContent)
}

// Clear removes every message of the conversation. The CV is kept.
// @Summary Clear messages
// @Tags    conversations
// @Param   id path string true "conversation id"
// @Security BearerAuth
// @Success 204
// @Router  /conversations/{id}/messages [delete]
func (h *ConversationHandler) Clear(c *fiber.Ctx) error {
	conv, ok, err := ownedConversation(c, h.convs)
	if !ok {
		return err
	}
	if err := h.messages.Clear(c.Context(), conv.ID); err != nil {
		return presenter.Fail(c, err, "failed to clear messages")
	}
	return c.SendStatus(http.StatusNoContent)
}

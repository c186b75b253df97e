package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/cvchat/api/http/presenter"
	"github.com/artem13815/cvchat/pkg/chat"
	"github.com/artem13815/cvchat/pkg/cv"
)

// CVHandler exposes the CV document of a conversation for direct edits.
type CVHandler struct {
	convs chat.ConversationRepository
	store cv.Store
}

func NewCVHandler(convs chat.ConversationRepository, store cv.Store) *CVHandler {
	return &CVHandler{convs: convs, store: store}
}

// Get returns the current CV.
// @Summary Get CV
// @Tags    cv
// @Produce json
// @Param   id path string true "conversation id"
// @Security BearerAuth
// @Success 200 {object} cv.Data
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /conversations/{id}/cv [get]
func (h *CVHandler) Get(c *fiber.Ctx) error {
	conv, ok, err := ownedConversation(c, h.convs)
	if !ok {
		return err
	}
	doc, err := h.store.Get(c.Context(), conv.ID)
	if err != nil {
		return presenter.Fail(c, err, "failed to load cv")
	}
	return presenter.JSON(c, http.StatusOK, doc)
}

// PutSection writes one section under its declared policy. The body is the
// raw section value: an object for PersonalData, Profile and ContactInfo,
// an array otherwise.
// @Summary Update CV section
// @Tags    cv
// @Accept  json
// @Produce json
// @Param   id      path string true "conversation id"
// @Param   section path string true "section name, e.g. Experience"
// @Security BearerAuth
// @Success 200 {object} cv.Data
// @Failure 400 {object} presenter.ErrorResponse
// @Router  /conversations/{id}/cv/{section} [put]
func (h *CVHandler) PutSection(c *fiber.Ctx) error {
	conv, ok, err := ownedConversation(c, h.convs)
	if !ok {
		return err
	}
	section, err := cv.ParseSection(c.Params("section"))
	if err != nil {
		return presenter.Fail(c, err, "unknown section")
	}
	raw := append([]byte(nil), c.Body()...)
	doc, err := h.store.Update(c.Context(), conv.ID, func(d *cv.Data) error {
		return d.ApplySection(section, raw)
	})
	if err != nil {
		return presenter.Fail(c, err, "failed to update cv")
	}
	return presenter.JSON(c, http.StatusOK, doc)
}

// Reset empties the CV.
// @Summary Reset CV
// @Tags    cv
// @Param   id path string true "conversation id"
// @Security BearerAuth
// @Success 204
// @Router  /conversations/{id}/cv [delete]
func (h *CVHandler) Reset(c *fiber.Ctx) error {
	conv, ok, err := ownedConversation(c, h.convs)
	if !ok {
		return err
	}
	if err := h.store.Reset(c.Context(), conv.ID); err != nil {
		return presenter.Fail(c, err, "failed to reset cv")
	}
	return c.SendStatus(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/cvchat/api/http/presenter"
	"github.com/artem13815/cvchat/pkg/llm"
)

type ModelsHandler struct {
	lister llm.ModelLister
}

// NewModelsHandler accepts a nil lister for providers that cannot list models.
func NewModelsHandler(lister llm.ModelLister) *ModelsHandler {
	return &ModelsHandler{lister: lister}
}

// List returns the provider's free models.
// @Summary Free models
// @Tags    models
// @Produce json
// @Security BearerAuth
// @Success 200 {array} llm.ModelInfo
// @Failure 501 {object} presenter.ErrorResponse
// @Failure 502 {object} presenter.ErrorResponse
// @Router  /models [get]
func (h *ModelsHandler) List(c *fiber.Ctx) error {
	if h.lister == nil {
		return presenter.Error(c, http.StatusNotImplemented, "model listing is not supported by the configured provider")
	}
	models, err := h.lister.ListFreeModels(c.Context())
	if err != nil {
		return presenter.Fail(c, err, "failed to list models")
	}
	if models == nil {
		models = []llm.ModelInfo{}
	}
	return presenter.JSON(c, http.StatusOK, models)
}

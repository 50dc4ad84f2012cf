package advisory

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clearbill/clearbill/internal/domain/claims"
)

// ClaimLoader is the slice of the claims service the advisory handler needs.
type ClaimLoader interface {
	GetClaim(ctx context.Context, id uuid.UUID) (*claims.Claim, error)
}

type Handler struct {
	client *Client
	loader ClaimLoader
}

func NewHandler(client *Client, loader ClaimLoader) *Handler {
	return &Handler{client: client, loader: loader}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/claims/:id/suggestions", h.Suggest)
}

func (h *Handler) Suggest(c echo.Context) error {
	if !h.client.Enabled() {
		return echo.NewHTTPError(http.StatusNotImplemented, "advisory service not configured")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}

	claim, err := h.loader.GetClaim(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, claims.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	if claim.Document == nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "claim has no submitted document")
	}

	out, err := h.client.Suggest(c.Request().Context(), claim.Document)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

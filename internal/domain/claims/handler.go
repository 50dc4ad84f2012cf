package claims

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clearbill/clearbill/internal/clearinghouse"
	"github.com/clearbill/clearbill/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/claims", h.Submit)
	g.GET("/claims", h.List)
	g.GET("/claims/:id", h.Get)
	g.POST("/claims/:id/status-check", h.CheckStatus)
	g.POST("/claims/:id/remittance", h.LinkRemittance)
	g.GET("/claims/:id/events", h.ListEvents)
}

func (h *Handler) Submit(c echo.Context) error {
	var draft ClaimDraft
	if err := c.Bind(&draft); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	claim, err := h.svc.Submit(c.Request().Context(), &draft)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, claim)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListClaims(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return mapError(err)
	}
	if items == nil {
		items = []*Claim{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}

	claim, err := h.svc.LoadClaim(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) CheckStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}

	claim, err := h.svc.CheckStatus(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) LinkRemittance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}

	result, err := h.svc.LinkRemittance(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ListEvents(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}

	p := pagination.FromContext(c)
	ascending := c.QueryParam("order") == "asc"
	events, total, err := h.svc.ListEvents(c.Request().Context(), id, ascending, p.Limit, p.Offset)
	if err != nil {
		return mapError(err)
	}
	if events == nil {
		events = []*ClaimEvent{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, p.Limit, p.Offset))
}

// mapError translates domain errors to HTTP status codes. Transient gateway
// failures surface as 503 so callers know a retry is reasonable; rejections
// and missing fields are 422 because retrying without changing the claim
// cannot succeed.
func mapError(err error) error {
	var (
		ve  *ValidationError
		mfe *MissingFieldsError
		gr  *clearinghouse.GatewayRejection
		te  *clearinghouse.TransientError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.As(err, &mfe):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]any{
			"message": "claim is missing fields required for a status check",
			"fields":  mfe.Fields,
		})
	case errors.As(err, &gr):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, gr.Error())
	case errors.As(err, &te):
		return echo.NewHTTPError(http.StatusServiceUnavailable, te.Error())
	default:
		return err
	}
}

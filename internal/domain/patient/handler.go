package patient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/auth"
	"github.com/Sanskrutib0369/Sandhigata-Vata/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RolePhysician, auth.RoleAssistant))
	read.GET("/patients", h.ListPatients)
	read.GET("/patients/:id", h.GetPatient)
	read.GET("/storage/stats", h.StorageStats)

	write := api.Group("", auth.RequireRole(auth.RolePhysician, auth.RoleAssistant))
	write.POST("/patients", h.CreatePatient)
	write.PUT("/patients/:id", h.UpdatePatient)

	clinician := api.Group("", auth.RequireRole(auth.RolePhysician))
	clinician.DELETE("/patients/:id", h.DeletePatient)
	clinician.POST("/patients/_delete", h.DeletePatients)
	clinician.GET("/patients/_export", h.ExportPatients)
	clinician.POST("/patients/_import", h.ImportPatients)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/patients", h.ClearPatients)
}

// HTTPError maps service errors onto API responses.
func HTTPError(err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrStorageFull):
		return echo.NewHTTPError(http.StatusInsufficientStorage, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) ListPatients(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)

	var (
		items []*Record
		total int
		err   error
	)
	if q := c.QueryParam("q"); q != "" {
		var matched []*Record
		matched, err = h.svc.Search(ctx, q)
		total = len(matched)
		items = window(matched, pg.Limit, pg.Offset)
	} else {
		items, total, err = h.svc.List(ctx, pg.Limit, pg.Offset)
	}
	if err != nil {
		return HTTPError(err)
	}

	resp := pagination.NewResponse(items, total, pg.Limit, pg.Offset)
	var extra url.Values
	if q := c.QueryParam("q"); q != "" {
		extra = url.Values{"q": {q}}
	}
	resp.Links = pg.LinksWithQuery(c.Request().URL.Path, extra, total)
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var r Record
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &r); err != nil {
		return HTTPError(err)
	}
	c.Response().Header().Set("Location", "/api/v1/patients/"+r.ID)
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetPatient(c echo.Context) error {
	r, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var r Record
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ID = c.Param("id")
	if err := h.svc.Save(c.Request().Context(), &r); err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := h.svc.Get(ctx, id); err != nil {
		return HTTPError(err)
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		return HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

func (h *Handler) DeletePatients(c echo.Context) error {
	var req deleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	deleted, err := h.svc.DeleteMany(c.Request().Context(), req.IDs)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": deleted})
}

func (h *Handler) ClearPatients(c echo.Context) error {
	if err := h.svc.Clear(c.Request().Context()); err != nil {
		return HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) StorageStats(c echo.Context) error {
	ctx := c.Request().Context()
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		return HTTPError(err)
	}
	capacity, err := h.svc.Capacity(ctx)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"stats":    stats,
		"capacity": capacity,
	})
}

func (h *Handler) ExportPatients(c echo.Context) error {
	env, err := h.svc.Export(c.Request().Context())
	if err != nil {
		return HTTPError(err)
	}
	name := fmt.Sprintf("sandhigata-vata-export-%s.json", env.ExportDate.Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.JSON(http.StatusOK, env)
}

func (h *Handler) ImportPatients(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res := h.svc.Import(c.Request().Context(), data)
	if !res.Success && res.Imported == 0 {
		return c.JSON(http.StatusUnprocessableEntity, res)
	}
	return c.JSON(http.StatusOK, res)
}

package printout

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/diagnosis"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/patient"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/xray"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/auth"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/blobstore"
)

const FormatText = "text"

type Handler struct {
	patients *patient.Service
	blobs    blobstore.Store
	logger   zerolog.Logger
	now      func() time.Time
}

func NewHandler(patients *patient.Service, blobs blobstore.Store, logger zerolog.Logger) *Handler {
	return &Handler{patients: patients, blobs: blobs, logger: logger, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RolePhysician, auth.RoleAssistant))
	g.GET("/patients/:id/report", h.GetReport)
}

// GetReport renders the printable report for a patient. The default is HTML
// with the x-ray embedded; ?format=text returns the plain summary.
func (h *Handler) GetReport(c echo.Context) error {
	ctx := c.Request().Context()
	r, err := h.patients.Get(ctx, c.Param("id"))
	if err != nil {
		return patient.HTTPError(err)
	}

	now := h.now().UTC()
	d := diagnosis.Diagnose(r)

	if c.QueryParam("format") == FormatText {
		var buf bytes.Buffer
		if err := RenderText(&buf, NewView(r, d, "", now)); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, buf.Bytes())
	}

	image, err := xray.Inline(ctx, h.blobs, r.Labs.XrayImage)
	if err != nil {
		h.logger.Warn().Err(err).Str("patient_id", r.ID).Msg("x-ray not embedded in report")
		image = ""
	}

	var buf bytes.Buffer
	if err := Render(&buf, NewView(r, d, image, now)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("inline; filename=%q", FileName(r, now)))
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

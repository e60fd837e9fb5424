// Package xray attaches radiographs to patient records. Images are kept in a
// blobstore; the patient's labs only hold a "blob:<id>" reference and the
// original file name.
package xray

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/patient"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/auth"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/blobstore"
)

const sniffLen = 512

type Handler struct {
	patients *patient.Service
	blobs    blobstore.Store
	logger   zerolog.Logger
}

func NewHandler(patients *patient.Service, blobs blobstore.Store, logger zerolog.Logger) *Handler {
	return &Handler{patients: patients, blobs: blobs, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole(auth.RolePhysician, auth.RoleAssistant)

	g := api.Group("", role)
	g.GET("/patients/:id/xray", h.DownloadXray)
	g.POST("/patients/:id/xray", h.UploadXray)
}

func blobError(err error) error {
	switch {
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, blobstore.ErrMissingFileName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, blobstore.ErrBlobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "x-ray not found")
	case errors.Is(err, blobstore.ErrNotDataURI):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "stored x-ray is not a valid image")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// UploadXray stores the multipart "file" field and points the patient's labs
// at it. A previously stored image is removed once the record is updated.
func (h *Handler) UploadXray(c echo.Context) error {
	ctx := c.Request().Context()
	r, err := h.patients.Get(ctx, c.Param("id"))
	if err != nil {
		return patient.HTTPError(err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	br := bufio.NewReaderSize(src, sniffLen)
	head, _ := br.Peek(sniffLen)

	meta, err := h.blobs.Put(ctx, blobstore.Metadata{
		FileName:    file.Filename,
		ContentType: blobstore.DetectContentType(file.Header.Get(echo.HeaderContentType), file.Filename, head),
		PatientID:   r.ID,
	}, br)
	if err != nil {
		return blobError(err)
	}

	previous := r.Labs.XrayImage
	r.Labs.XrayImage = blobstore.Ref(meta.ID)
	r.Labs.XrayReport = file.Filename
	if err := h.patients.Save(ctx, r); err != nil {
		h.discard(ctx, meta.ID)
		return patient.HTTPError(err)
	}
	if id, ok := blobstore.ParseRef(previous); ok {
		h.discard(ctx, id)
	}

	return c.JSON(http.StatusCreated, meta)
}

func (h *Handler) discard(ctx context.Context, id string) {
	if err := h.blobs.Delete(ctx, id); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		h.logger.Warn().Err(err).Str("blob_id", id).Msg("failed to remove x-ray blob")
	}
}

// DownloadXray serves the patient's x-ray, whether stored as a blob or inline
// as a data URI.
func (h *Handler) DownloadXray(c echo.Context) error {
	ctx := c.Request().Context()
	r, err := h.patients.Get(ctx, c.Param("id"))
	if err != nil {
		return patient.HTTPError(err)
	}

	contentType, content, err := Open(ctx, h.blobs, r.Labs.XrayImage)
	if err != nil {
		return blobError(err)
	}
	defer content.Close()

	name := r.Labs.XrayReport
	if name == "" {
		name = "xray"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", name))
	return c.Stream(http.StatusOK, contentType, content)
}

// Open resolves an x-ray field to its media type and content. An empty field
// reports blobstore.ErrBlobNotFound.
func Open(ctx context.Context, blobs blobstore.Store, field string) (string, io.ReadCloser, error) {
	if field == "" {
		return "", nil, blobstore.ErrBlobNotFound
	}
	if id, ok := blobstore.ParseRef(field); ok {
		rc, meta, err := blobs.Get(ctx, id)
		if err != nil {
			return "", nil, err
		}
		return meta.ContentType, rc, nil
	}
	contentType, data, err := blobstore.ParseImageDataURI(field)
	if err != nil {
		return "", nil, err
	}
	return contentType, io.NopCloser(bytes.NewReader(data)), nil
}

// Inline returns the x-ray field as a data URI suitable for embedding in a
// report. An empty field yields "". Only blob references and image data URIs
// are accepted, and the result is re-encoded from the decoded bytes.
func Inline(ctx context.Context, blobs blobstore.Store, field string) (string, error) {
	if field == "" {
		return "", nil
	}
	contentType, rc, err := Open(ctx, blobs, field)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return blobstore.DataURI(contentType, data), nil
}

package diagnosis

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/patient"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/auth"
)

type Handler struct {
	patients *patient.Service
}

func NewHandler(patients *patient.Service) *Handler {
	return &Handler{patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole(auth.RolePhysician, auth.RoleAssistant)

	read := api.Group("", role)
	read.GET("/diagnosis/criteria", h.ListCriteria)
	read.POST("/diagnosis/evaluate", h.EvaluateQuestionnaire)
	read.GET("/patients/:id/diagnosis", h.GetPatientDiagnosis)
}

// Report is the diagnosis of one questionnaire as served over the API.
type Report struct {
	PatientID string    `json:"patientId,omitempty"`
	Verdict   string    `json:"verdict"`
	Summary   string    `json:"summary"`
	Diagnosis Diagnosis `json:"diagnosis"`
	Outcomes  []Outcome `json:"outcomes"`
}

// NewReport diagnoses r.
func NewReport(r *patient.Record) Report {
	d := Diagnose(r)
	return Report{
		PatientID: r.ID,
		Verdict:   d.Verdict(),
		Summary:   d.Summary(),
		Diagnosis: d,
		Outcomes:  d.Criteria.Outcomes(),
	}
}

func (h *Handler) ListCriteria(c echo.Context) error {
	return c.JSON(http.StatusOK, Criteria)
}

// EvaluateQuestionnaire diagnoses a questionnaire without storing it.
func (h *Handler) EvaluateQuestionnaire(c echo.Context) error {
	var r patient.Record
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return patient.HTTPError(err)
	}
	return c.JSON(http.StatusOK, NewReport(&r))
}

func (h *Handler) GetPatientDiagnosis(c echo.Context) error {
	r, err := h.patients.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return patient.HTTPError(err)
	}
	return c.JSON(http.StatusOK, NewReport(r))
}

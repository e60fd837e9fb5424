// Package reporting computes clinic-wide screening measures over the stored
// patient questionnaires.
package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/diagnosis"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/patient"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/auth"
)

const (
	ParamSince = "since"
	ParamUntil = "until"

	dateLayout = "2006-01-02"
)

// Row is one line of a measure result.
type Row map[string]interface{}

// MeasureDefinition describes a measure and how to compute it.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`

	compute func(records []*patient.Record) []Row
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string            `json:"measure_id"`
	MeasureName string            `json:"measure_name"`
	GeneratedAt time.Time         `json:"generated_at"`
	Population  int               `json:"population"`
	Results     []Row             `json:"results"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

var dateRange = []string{ParamSince, ParamUntil}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "diagnosis-outcomes",
		Name:        "Diagnosis Outcomes",
		Description: "Number of patients screened positive and negative for Sandhigata Vata",
		Parameters:  dateRange,
		compute:     diagnosisOutcomes,
	},
	{
		ID:          "criteria-failures",
		Name:        "Criteria Failures",
		Description: "How often each diagnostic criterion was not met",
		Parameters:  dateRange,
		compute:     criteriaFailures,
	},
	{
		ID:          "affected-joints",
		Name:        "Affected Joints",
		Description: "Number of patients reporting each joint as affected",
		Parameters:  dateRange,
		compute:     affectedJoints,
	},
	{
		ID:          "pain-intensity",
		Name:        "Pain Intensity",
		Description: "Patients grouped by visual analog scale band: low (0-4), moderate (5-7), high (8-10)",
		Parameters:  dateRange,
		compute:     painIntensity,
	},
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// Lister supplies the records a measure runs over.
type Lister interface {
	List(ctx context.Context) ([]*patient.Record, error)
}

// Evaluate runs the measure over every record created within the optional
// since/until window (inclusive dates, UTC).
func (m *MeasureDefinition) Evaluate(ctx context.Context, src Lister, params map[string]string) (*MeasureReport, error) {
	from, to, err := window(params)
	if err != nil {
		return nil, err
	}

	all, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	population := make([]*patient.Record, 0, len(all))
	for _, r := range all {
		if !from.IsZero() && r.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !r.CreatedAt.Before(to) {
			continue
		}
		population = append(population, r)
	}

	return &MeasureReport{
		MeasureID:   m.ID,
		MeasureName: m.Name,
		GeneratedAt: time.Now().UTC(),
		Population:  len(population),
		Results:     m.compute(population),
		Parameters:  params,
	}, nil
}

func window(params map[string]string) (from, to time.Time, err error) {
	if v := params[ParamSince]; v != "" {
		if from, err = time.Parse(dateLayout, v); err != nil {
			return from, to, fmt.Errorf("%s must be a YYYY-MM-DD date", ParamSince)
		}
	}
	if v := params[ParamUntil]; v != "" {
		if to, err = time.Parse(dateLayout, v); err != nil {
			return from, to, fmt.Errorf("%s must be a YYYY-MM-DD date", ParamUntil)
		}
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}

func diagnosisOutcomes(records []*patient.Record) []Row {
	positive := 0
	for _, r := range records {
		if diagnosis.Diagnose(r).IsPositive {
			positive++
		}
	}
	return []Row{
		{"verdict": diagnosis.VerdictPositive, "total": positive},
		{"verdict": diagnosis.VerdictNegative, "total": len(records) - positive},
	}
}

func criteriaFailures(records []*patient.Record) []Row {
	failed := make([]int, len(diagnosis.Criteria))
	for _, r := range records {
		res := diagnosis.Evaluate(r)
		for i, c := range diagnosis.Criteria {
			if !res.Met(c.Key) {
				failed[i]++
			}
		}
	}

	rows := make([]Row, len(diagnosis.Criteria))
	for i, c := range diagnosis.Criteria {
		rows[i] = Row{"criterion": c.Key, "label": c.Label, "failed": failed[i], "met": len(records) - failed[i]}
	}
	return rows
}

func affectedJoints(records []*patient.Record) []Row {
	rows := make([]Row, len(patient.Joints))
	for i, j := range patient.Joints {
		n := 0
		for _, r := range records {
			if r.HasJoint(j) {
				n++
			}
		}
		rows[i] = Row{"joint": string(j), "total": n}
	}
	return rows
}

// Pain bands follow the colour coding of the patient list.
const (
	BandLow      = "low"
	BandModerate = "moderate"
	BandHigh     = "high"
)

func PainBand(intensity int) string {
	switch {
	case intensity > 7:
		return BandHigh
	case intensity > 4:
		return BandModerate
	}
	return BandLow
}

func painIntensity(records []*patient.Record) []Row {
	counts := map[string]int{}
	for _, r := range records {
		counts[PainBand(r.Symptoms.PainIntensity)]++
	}
	return []Row{
		{"band": BandLow, "range": "0-4", "total": counts[BandLow]},
		{"band": BandModerate, "range": "5-7", "total": counts[BandModerate]},
		{"band": BandHigh, "range": "8-10", "total": counts[BandHigh]},
	}
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	src Lister
}

func NewHandler(src Lister) *Handler {
	return &Handler{src: src}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.RequireRole(auth.RolePhysician))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	params := map[string]string{}
	for _, p := range measure.Parameters {
		if v := c.QueryParam(p); v != "" {
			params[p] = v
		}
	}

	report, err := measure.Evaluate(c.Request().Context(), h.src, params)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

package patient

import (
	"fmt"
	"strings"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/blobstore"
)

const (
	MinPainIntensity = 0
	MaxPainIntensity = 10
)

// ValidationError collects every field problem found in a record.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid patient record: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate checks a record at the form/API boundary. Unanswered questions are
// allowed; values outside a vocabulary and out-of-range numbers are not.
func (r *Record) Validate() error {
	verr := &ValidationError{}

	if strings.TrimSpace(r.Demographics.Name) == "" {
		verr.add("demographics.name is required")
	}
	if r.Demographics.Age < 0 {
		verr.add("demographics.age must not be negative, got %d", r.Demographics.Age)
	}

	s := r.Symptoms
	if s.PainIntensity < MinPainIntensity || s.PainIntensity > MaxPainIntensity {
		verr.add("symptoms.painIntensity must be between %d and %d, got %d",
			MinPainIntensity, MaxPainIntensity, s.PainIntensity)
	}

	checkYesNo(verr, "symptoms.hasJointPain", s.HasJointPain)
	checkYesNo(verr, "symptoms.stiffness", s.Stiffness)
	checkYesNo(verr, "symptoms.crepitus", s.Crepitus)
	checkYesNo(verr, "symptoms.shiftingPain", s.ShiftingPain)
	checkYesNo(verr, "symptoms.warmth", s.Warmth)
	checkYesNo(verr, "symptoms.fever", s.Fever)
	checkYesNo(verr, "symptoms.discoloration", s.Discoloration)

	if s.PainOnset != Unanswered && !onsetValues[s.PainOnset] {
		verr.add("symptoms.painOnset: unknown value %q", s.PainOnset)
	}
	if s.Swelling != Unanswered && !swellingValues[s.Swelling] {
		verr.add("symptoms.swelling: unknown value %q", s.Swelling)
	}
	if s.OilMassageEffect != Unanswered && !oilEffectValues[s.OilMassageEffect] {
		verr.add("symptoms.oilMassageEffect: unknown value %q", s.OilMassageEffect)
	}
	for _, p := range s.PainTypes {
		if !painTypeValues[p] {
			verr.add("symptoms.painTypes: unknown value %q", p)
		}
	}
	for _, j := range r.AffectedJoints {
		if !jointValues[j] {
			verr.add("affectedJoints: unknown joint %q", j)
		}
	}

	if err := blobstore.CheckImageField(r.Labs.XrayImage); err != nil {
		verr.add("labs.xrayImage: %v", err)
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func checkYesNo(verr *ValidationError, field string, v YesNo) {
	if v != Unanswered && !yesNoValues[v] {
		verr.add("%s: unknown value %q", field, v)
	}
}

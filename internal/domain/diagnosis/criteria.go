// Package diagnosis classifies a patient questionnaire as positive or negative
// for Sandhigata Vata. The rule set is a fixed, ordered table of criteria; a
// patient is positive only when every criterion is met.
package diagnosis

import (
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/patient"
)

// Criterion is one named sub-condition of the diagnosis.
type Criterion struct {
	Key            string `json:"key"`
	Label          string `json:"label"`
	FailureMessage string `json:"failureMessage"`

	satisfied func(r *patient.Record) bool
}

// Satisfied evaluates the criterion. A nil record fails every criterion.
func (c Criterion) Satisfied(r *patient.Record) bool {
	if r == nil {
		return false
	}
	return c.satisfied(r)
}

const (
	KeyJointPain      = "jointPain"
	KeyOnset          = "onset"
	KeyPainType       = "painType"
	KeySwelling       = "swelling"
	KeyStiffness      = "stiffness"
	KeyCrepitus       = "crepitus"
	KeyShiftingPain   = "shiftingPain"
	KeyWarmth         = "warmth"
	KeyFever          = "fever"
	KeyDiscoloration  = "discoloration"
	KeyOilEffect      = "oilEffect"
	KeyAffectedJoints = "affectedJoints"
)

var (
	// QualifyingPainTypes are the pain descriptors accepted by the painType criterion.
	QualifyingPainTypes = []patient.PainType{patient.PainDull, patient.PainAching, patient.PainPricking}
	// QualifyingJoints are the joints of which at least one must be affected.
	QualifyingJoints = []patient.Joint{patient.JointKnee, patient.JointSpine, patient.JointHip}
)

// Criteria is the rule table. Its order is the order of Result fields and of
// the reasons reported for a negative diagnosis.
var Criteria = []Criterion{
	{
		Key:            KeyJointPain,
		Label:          "Joint Pain Present",
		FailureMessage: "Joint pain must be present",
		satisfied:      func(r *patient.Record) bool { return answered(r.Symptoms.HasJointPain, patient.Yes) },
	},
	{
		Key:            KeyOnset,
		Label:          "Gradual Onset",
		FailureMessage: "Pain onset must be gradual",
		satisfied:      func(r *patient.Record) bool { return answered(r.Symptoms.PainOnset, patient.OnsetGradual) },
	},
	{
		Key:            KeyPainType,
		Label:          "Dull, Aching or Pricking Pain",
		FailureMessage: "Pain must be dull, aching or pricking in nature",
		satisfied: func(r *patient.Record) bool {
			for _, t := range QualifyingPainTypes {
				if r.HasPainType(t) {
					return true
				}
			}
			return false
		},
	},
	{
		Key:            KeySwelling,
		Label:          "Joint Swelling",
		FailureMessage: "Joint swelling must be present",
		satisfied: func(r *patient.Record) bool {
			return answered(r.Symptoms.Swelling, patient.SwellingSometimes, patient.SwellingAlways)
		},
	},
	{
		Key:            KeyStiffness,
		Label:          "Joint Stiffness",
		FailureMessage: "Joint stiffness must be present",
		satisfied:      func(r *patient.Record) bool { return answered(r.Symptoms.Stiffness, patient.Yes) },
	},
	{
		Key:            KeyCrepitus,
		Label:          "Crepitus Sound",
		FailureMessage: "Crepitus must be present on joint movement",
		satisfied:      func(r *patient.Record) bool { return answered(r.Symptoms.Crepitus, patient.Yes) },
	},
	{
		Key:            KeyShiftingPain,
		Label:          "Shifting Pain",
		FailureMessage: "Pain must shift between joints",
		satisfied:      func(r *patient.Record) bool { return answered(r.Symptoms.ShiftingPain, patient.Yes) },
	},
	{
		Key:            KeyWarmth,
		Label:          "No Joint Warmth",
		FailureMessage: "Warmth indicates an inflammatory process and excludes this diagnosis",
		satisfied:      func(r *patient.Record) bool { return answered(r.Symptoms.Warmth, patient.No) },
	},
	{
		Key:            KeyFever,
		Label:          "No Fever",
		FailureMessage: "Fever indicates an inflammatory or infective process and excludes this diagnosis",
		satisfied:      func(r *patient.Record) bool { return answered(r.Symptoms.Fever, patient.No) },
	},
	{
		Key:            KeyDiscoloration,
		Label:          "No Discoloration",
		FailureMessage: "Discoloration over the joint excludes this diagnosis",
		satisfied:      func(r *patient.Record) bool { return answered(r.Symptoms.Discoloration, patient.No) },
	},
	{
		Key:            KeyOilEffect,
		Label:          "Oil Massage Relief",
		FailureMessage: "Symptoms must be relieved by oil application or massage",
		satisfied:      func(r *patient.Record) bool { return answered(r.Symptoms.OilMassageEffect, patient.OilRelief) },
	},
	{
		Key:            KeyAffectedJoints,
		Label:          "Knee, Spine or Hip Affected",
		FailureMessage: "Affected joints must include Knee, Spine or Hip",
		satisfied: func(r *patient.Record) bool {
			for _, j := range QualifyingJoints {
				if r.HasJoint(j) {
					return true
				}
			}
			return false
		},
	},
}

// answered reports whether v is one of the accepted answers. An unanswered
// question never satisfies a criterion, including the "absence required" ones
// where the accepted answer is No.
func answered[T ~string](v T, accepted ...T) bool {
	if v == patient.Unanswered {
		return false
	}
	for _, a := range accepted {
		if v == a {
			return true
		}
	}
	return false
}

// Lookup returns the criterion with the given key.
func Lookup(key string) (Criterion, bool) {
	for _, c := range Criteria {
		if c.Key == key {
			return c, true
		}
	}
	return Criterion{}, false
}

package diagnosis

import (
	"fmt"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/patient"
)

// Result holds one boolean per criterion, in rule table order.
type Result struct {
	JointPain      bool `json:"jointPain"`
	Onset          bool `json:"onset"`
	PainType       bool `json:"painType"`
	Swelling       bool `json:"swelling"`
	Stiffness      bool `json:"stiffness"`
	Crepitus       bool `json:"crepitus"`
	ShiftingPain   bool `json:"shiftingPain"`
	Warmth         bool `json:"warmth"`
	Fever          bool `json:"fever"`
	Discoloration  bool `json:"discoloration"`
	OilEffect      bool `json:"oilEffect"`
	AffectedJoints bool `json:"affectedJoints"`
}

func (res *Result) field(key string) *bool {
	switch key {
	case KeyJointPain:
		return &res.JointPain
	case KeyOnset:
		return &res.Onset
	case KeyPainType:
		return &res.PainType
	case KeySwelling:
		return &res.Swelling
	case KeyStiffness:
		return &res.Stiffness
	case KeyCrepitus:
		return &res.Crepitus
	case KeyShiftingPain:
		return &res.ShiftingPain
	case KeyWarmth:
		return &res.Warmth
	case KeyFever:
		return &res.Fever
	case KeyDiscoloration:
		return &res.Discoloration
	case KeyOilEffect:
		return &res.OilEffect
	case KeyAffectedJoints:
		return &res.AffectedJoints
	}
	panic(fmt.Sprintf("diagnosis: no result field for criterion %q", key))
}

// Met reports the outcome of the criterion with the given key. Unknown keys
// report false.
func (res Result) Met(key string) bool {
	if _, ok := Lookup(key); !ok {
		return false
	}
	return *res.field(key)
}

// Outcome pairs a criterion with its evaluated value.
type Outcome struct {
	Criterion
	Met bool `json:"met"`
}

// Outcomes lists every criterion with its value in rule table order.
func (res Result) Outcomes() []Outcome {
	out := make([]Outcome, len(Criteria))
	for i, c := range Criteria {
		out[i] = Outcome{Criterion: c, Met: *res.field(c.Key)}
	}
	return out
}

// Failed counts the criteria that were not met.
func (res Result) Failed() int {
	n := 0
	for _, c := range Criteria {
		if !*res.field(c.Key) {
			n++
		}
	}
	return n
}

// Evaluate computes every criterion for r. It never short-circuits and has no
// error path: missing answers simply fail their criterion.
func Evaluate(r *patient.Record) Result {
	var res Result
	for _, c := range Criteria {
		*res.field(c.Key) = c.Satisfied(r)
	}
	return res
}

// Diagnosis is the aggregated verdict.
type Diagnosis struct {
	IsPositive bool     `json:"isPositive"`
	Reasons    []string `json:"reasons"`
	Criteria   Result   `json:"criteria"`
}

// Diagnose evaluates r and reduces the criteria to a verdict. The patient is
// positive only when every criterion is met; otherwise Reasons carries one
// message per failed criterion in rule table order.
func Diagnose(r *patient.Record) Diagnosis {
	res := Evaluate(r)
	reasons := []string{}
	for _, c := range Criteria {
		if !*res.field(c.Key) {
			reasons = append(reasons, c.FailureMessage)
		}
	}
	return Diagnosis{
		IsPositive: len(reasons) == 0,
		Reasons:    reasons,
		Criteria:   res,
	}
}

const (
	VerdictPositive = "POSITIVE"
	VerdictNegative = "NEGATIVE"
)

func (d Diagnosis) Verdict() string {
	if d.IsPositive {
		return VerdictPositive
	}
	return VerdictNegative
}

// Summary is the sentence shown under the verdict on reports.
func (d Diagnosis) Summary() string {
	if d.IsPositive {
		return "All strict diagnostic criteria for Sandhigata Vata are met."
	}
	return "The patient does not meet all criteria. Failed criteria are highlighted below."
}

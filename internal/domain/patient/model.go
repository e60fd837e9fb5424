package patient

import (
	"encoding/json"
	"time"
)

// Unanswered is the zero value of every enumerated answer. Rules treat it as
// failing, never as an error.
const Unanswered = ""

// YesNo is a binary questionnaire answer.
type YesNo string

const (
	Yes YesNo = "Yes"
	No  YesNo = "No"
)

// Onset describes how joint pain started.
type Onset string

const (
	OnsetGradual Onset = "Gradual"
	OnsetSudden  Onset = "Sudden"
)

// PainType is a descriptor of the character of the pain.
type PainType string

const (
	PainDull      PainType = "Dull"
	PainAching    PainType = "Aching"
	PainPricking  PainType = "Pricking"
	PainBurning   PainType = "Burning"
	PainThrobbing PainType = "Throbbing"
	PainStabbing  PainType = "Stabbing"
)

// Swelling is how often the joint swells.
type Swelling string

const (
	SwellingNever     Swelling = "Never"
	SwellingSometimes Swelling = "Sometimes"
	SwellingAlways    Swelling = "Always"
)

// OilEffect is the patient's response to oil application or massage.
type OilEffect string

const (
	OilRelief     OilEffect = "Relief"
	OilNoChange   OilEffect = "NoChange"
	OilAggravates OilEffect = "Aggravates"
)

// Joint names come from the body map vocabulary.
type Joint string

const (
	JointKnee     Joint = "Knee"
	JointSpine    Joint = "Spine"
	JointHip      Joint = "Hip"
	JointShoulder Joint = "Shoulder"
	JointElbow    Joint = "Elbow"
	JointWrist    Joint = "Wrist"
	JointAnkle    Joint = "Ankle"
	JointNeck     Joint = "Neck"
	JointFingers  Joint = "Fingers"
	JointToes     Joint = "Toes"
)

var (
	yesNoValues     = map[YesNo]bool{Yes: true, No: true}
	onsetValues     = map[Onset]bool{OnsetGradual: true, OnsetSudden: true}
	swellingValues  = map[Swelling]bool{SwellingNever: true, SwellingSometimes: true, SwellingAlways: true}
	oilEffectValues = map[OilEffect]bool{OilRelief: true, OilNoChange: true, OilAggravates: true}
	painTypeValues  = map[PainType]bool{
		PainDull: true, PainAching: true, PainPricking: true,
		PainBurning: true, PainThrobbing: true, PainStabbing: true,
	}
)

// Joints is the full body map vocabulary in display order.
var Joints = []Joint{
	JointKnee, JointSpine, JointHip, JointShoulder, JointElbow,
	JointWrist, JointAnkle, JointNeck, JointFingers, JointToes,
}

var jointValues = func() map[Joint]bool {
	m := make(map[Joint]bool, len(Joints))
	for _, j := range Joints {
		m[j] = true
	}
	return m
}()

// Record is one completed questionnaire. ID and CreatedAt are assigned once on
// creation; every later save replaces the whole record.
type Record struct {
	ID             string       `json:"id" yaml:"id"`
	CreatedAt      time.Time    `json:"createdAt" yaml:"createdAt"`
	Demographics   Demographics `json:"demographics" yaml:"demographics"`
	Symptoms       Symptoms     `json:"symptoms" yaml:"symptoms"`
	AffectedJoints []Joint      `json:"affectedJoints" yaml:"affectedJoints"`
	Labs           Labs         `json:"labs" yaml:"labs"`
}

type Demographics struct {
	Name       string `json:"name" yaml:"name"`
	Age        int    `json:"age" yaml:"age"`
	Gender     string `json:"gender" yaml:"gender"`
	Address    string `json:"address,omitempty" yaml:"address,omitempty"`
	Occupation string `json:"occupation,omitempty" yaml:"occupation,omitempty"`
	Contact    string `json:"contact,omitempty" yaml:"contact,omitempty"`
	OPDIPDNo   string `json:"opdIpdNo,omitempty" yaml:"opdIpdNo,omitempty"`
}

type Symptoms struct {
	HasJointPain      YesNo      `json:"hasJointPain" yaml:"hasJointPain"`
	PainDuration      string     `json:"painDuration" yaml:"painDuration"`
	PainOnset         Onset      `json:"painOnset" yaml:"painOnset"`
	PainIntensity     int        `json:"painIntensity" yaml:"painIntensity"`
	PainTypes         []PainType `json:"painTypes" yaml:"painTypes"`
	Swelling          Swelling   `json:"swelling" yaml:"swelling"`
	SwellingDuration  string     `json:"swellingDuration,omitempty" yaml:"swellingDuration,omitempty"`
	Stiffness         YesNo      `json:"stiffness" yaml:"stiffness"`
	StiffnessDuration string     `json:"stiffnessDuration,omitempty" yaml:"stiffnessDuration,omitempty"`
	Crepitus          YesNo      `json:"crepitus" yaml:"crepitus"`
	ShiftingPain      YesNo      `json:"shiftingPain" yaml:"shiftingPain"`
	Warmth            YesNo      `json:"warmth" yaml:"warmth"`
	Fever             YesNo      `json:"fever" yaml:"fever"`
	Discoloration     YesNo      `json:"discoloration" yaml:"discoloration"`
	OilMassageEffect  OilEffect  `json:"oilMassageEffect" yaml:"oilMassageEffect"`
}

const (
	labXrayImage  = "xrayImage"
	labXrayReport = "xrayReport"
)

// Labs holds free-text lab values keyed by test name plus an optional x-ray.
// On the wire the x-ray fields sit beside the lab values in one flat object.
type Labs struct {
	Values     map[string]string `yaml:"values,omitempty"`
	XrayImage  string            `yaml:"xrayImage,omitempty"`
	XrayReport string            `yaml:"xrayReport,omitempty"`
}

func (l Labs) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(l.Values)+2)
	for k, v := range l.Values {
		flat[k] = v
	}
	if l.XrayImage != "" {
		flat[labXrayImage] = l.XrayImage
	}
	if l.XrayReport != "" {
		flat[labXrayReport] = l.XrayReport
	}
	return json.Marshal(flat)
}

func (l *Labs) UnmarshalJSON(data []byte) error {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*l = Labs{}
	for k, v := range flat {
		switch k {
		case labXrayImage:
			l.XrayImage = v
		case labXrayReport:
			l.XrayReport = v
		default:
			if l.Values == nil {
				l.Values = make(map[string]string)
			}
			l.Values[k] = v
		}
	}
	return nil
}

// HasJoint reports whether j is among the affected joints.
func (r *Record) HasJoint(j Joint) bool {
	for _, a := range r.AffectedJoints {
		if a == j {
			return true
		}
	}
	return false
}

// HasPainType reports whether the patient described the pain as t.
func (r *Record) HasPainType(t PainType) bool {
	for _, p := range r.Symptoms.PainTypes {
		if p == t {
			return true
		}
	}
	return false
}

// Normalize enforces the set and gating invariants: joints and pain types are
// deduplicated in first-seen order, and durations are dropped when the
// answer they qualify does not allow them.
func (r *Record) Normalize() {
	r.AffectedJoints = dedupe(r.AffectedJoints)
	r.Symptoms.PainTypes = dedupe(r.Symptoms.PainTypes)

	switch r.Symptoms.Swelling {
	case SwellingNever, Unanswered:
		r.Symptoms.SwellingDuration = ""
	}
	if r.Symptoms.Stiffness != Yes {
		r.Symptoms.StiffnessDuration = ""
	}
}

func dedupe[T comparable](in []T) []T {
	if len(in) == 0 {
		return in
	}
	seen := make(map[T]struct{}, len(in))
	out := in[:0:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

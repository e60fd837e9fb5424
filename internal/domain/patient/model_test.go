package patient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabs_MarshalFlat(t *testing.T) {
	labs := Labs{
		Values:     map[string]string{"esr": "12 mm/hr", "rf": "negative"},
		XrayImage:  "blob:abc",
		XrayReport: "Reduced joint space",
	}

	raw, err := json.Marshal(labs)
	require.NoError(t, err)

	var flat map[string]string
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, map[string]string{
		"esr":        "12 mm/hr",
		"rf":         "negative",
		"xrayImage":  "blob:abc",
		"xrayReport": "Reduced joint space",
	}, flat)
}

func TestLabs_UnmarshalFlat(t *testing.T) {
	var labs Labs
	err := json.Unmarshal([]byte(`{"crp":"4","xrayImage":"data:image/png;base64,AA=="}`), &labs)
	require.NoError(t, err)

	assert.Equal(t, "4", labs.Values["crp"])
	assert.Equal(t, "data:image/png;base64,AA==", labs.XrayImage)
	assert.Empty(t, labs.XrayReport)
	assert.NotContains(t, labs.Values, "xrayImage")
}

func TestLabs_EmptyMarshalsToObject(t *testing.T) {
	raw, err := json.Marshal(Labs{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestRecord_Normalize(t *testing.T) {
	r := &Record{
		Symptoms: Symptoms{
			PainTypes:         []PainType{PainDull, PainAching, PainDull},
			Swelling:          SwellingNever,
			SwellingDuration:  "2 weeks",
			Stiffness:         No,
			StiffnessDuration: "30 minutes",
		},
		AffectedJoints: []Joint{JointKnee, JointHip, JointKnee, JointSpine},
	}

	r.Normalize()

	assert.Equal(t, []PainType{PainDull, PainAching}, r.Symptoms.PainTypes)
	assert.Equal(t, []Joint{JointKnee, JointHip, JointSpine}, r.AffectedJoints)
	assert.Empty(t, r.Symptoms.SwellingDuration)
	assert.Empty(t, r.Symptoms.StiffnessDuration)
}

func TestRecord_NormalizeKeepsGatedDurations(t *testing.T) {
	r := &Record{Symptoms: Symptoms{
		Swelling:          SwellingSometimes,
		SwellingDuration:  "2 weeks",
		Stiffness:         Yes,
		StiffnessDuration: "30 minutes",
	}}

	r.Normalize()

	assert.Equal(t, "2 weeks", r.Symptoms.SwellingDuration)
	assert.Equal(t, "30 minutes", r.Symptoms.StiffnessDuration)
}

func TestRecord_HasJointAndPainType(t *testing.T) {
	r := &Record{
		Symptoms:       Symptoms{PainTypes: []PainType{PainBurning}},
		AffectedJoints: []Joint{JointShoulder},
	}
	assert.True(t, r.HasJoint(JointShoulder))
	assert.False(t, r.HasJoint(JointKnee))
	assert.True(t, r.HasPainType(PainBurning))
	assert.False(t, r.HasPainType(PainDull))
}

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Record)
		problem string
	}{
		{"missing name", func(r *Record) { r.Demographics.Name = "  " }, "demographics.name is required"},
		{"negative age", func(r *Record) { r.Demographics.Age = -1 }, "demographics.age"},
		{"intensity above range", func(r *Record) { r.Symptoms.PainIntensity = 11 }, "symptoms.painIntensity"},
		{"intensity below range", func(r *Record) { r.Symptoms.PainIntensity = -1 }, "symptoms.painIntensity"},
		{"unknown yes/no", func(r *Record) { r.Symptoms.Fever = "Maybe" }, "symptoms.fever"},
		{"unknown onset", func(r *Record) { r.Symptoms.PainOnset = "Overnight" }, "symptoms.painOnset"},
		{"unknown swelling", func(r *Record) { r.Symptoms.Swelling = "Often" }, "symptoms.swelling"},
		{"unknown oil effect", func(r *Record) { r.Symptoms.OilMassageEffect = "Better" }, "symptoms.oilMassageEffect"},
		{"unknown pain type", func(r *Record) { r.Symptoms.PainTypes = []PainType{"Sharp"} }, "symptoms.painTypes"},
		{"unknown joint", func(r *Record) { r.AffectedJoints = []Joint{"Jaw"} }, "affectedJoints"},
		{"x-ray script url", func(r *Record) { r.Labs.XrayImage = "javascript:alert(1)" }, "labs.xrayImage"},
		{"x-ray html data uri", func(r *Record) {
			r.Labs.XrayImage = "data:text/html;base64,PHNjcmlwdD5hbGVydCgxKTwvc2NyaXB0Pg=="
		}, "labs.xrayImage"},
		{"x-ray bad payload", func(r *Record) { r.Labs.XrayImage = "data:image/png;base64,!!!" }, "labs.xrayImage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord("Asha")
			tt.mutate(r)

			err := r.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.problem)
		})
	}
}

func TestRecord_ValidateAllowsUnanswered(t *testing.T) {
	r := &Record{Demographics: Demographics{Name: "Ravi"}}
	assert.NoError(t, r.Validate())
}

func TestRecord_ValidateAcceptsXrayForms(t *testing.T) {
	for _, field := range []string{"", "blob:0b7e6c1e-6a55-4a55-9d7c-3f2d3c1f0e11", "data:image/jpeg;base64,/9j/"} {
		r := validRecord("Asha")
		r.Labs.XrayImage = field
		assert.NoError(t, r.Validate(), "xrayImage %q", field)
	}
}

func TestRecord_ValidateIntensityBounds(t *testing.T) {
	for _, v := range []int{MinPainIntensity, MaxPainIntensity} {
		r := validRecord("Asha")
		r.Symptoms.PainIntensity = v
		assert.NoError(t, r.Validate(), "intensity %d", v)
	}
}

func TestRecord_ValidateCollectsEveryProblem(t *testing.T) {
	r := validRecord("")
	r.Symptoms.PainIntensity = 12
	r.AffectedJoints = []Joint{"Jaw"}

	var verr *ValidationError
	require.ErrorAs(t, r.Validate(), &verr)
	assert.Len(t, verr.Problems, 3)
}

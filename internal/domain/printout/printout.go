// Package printout renders a patient's questionnaire and diagnosis as a
// printable report.
package printout

import (
	"fmt"
	"html/template"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/diagnosis"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/patient"
)

const (
	notAvailable = "N/A"
	dateLayout   = "2006-01-02"

	labOther = "other"
)

// Line is one labelled value on the report. Failed marks answers whose
// criterion was not met.
type Line struct {
	Label  string
	Value  string
	Failed bool
}

// View is the data the report templates are executed with.
type View struct {
	Title      string
	Name       string
	AgeGender  string
	OPDIPDNo   string
	ReportDate string

	Positive bool
	Verdict  string
	Summary  string
	Reasons  []string
	Criteria []diagnosis.Outcome

	Symptoms    []Line
	Joints      []string
	JointsValid bool
	Labs        []Line
	Details     []Line

	XrayImage    template.URL
	XrayFileName string
}

// NewView builds the report view for r. image overrides the stored x-ray
// field, so callers can substitute an inlined data URI for a blob reference.
func NewView(r *patient.Record, d diagnosis.Diagnosis, image string, now time.Time) View {
	demo := r.Demographics
	s := r.Symptoms
	met := d.Criteria

	v := View{
		Title:      "Sandhigata Vata Diagnosis Report",
		Name:       demo.Name,
		AgeGender:  fmt.Sprintf("%d / %s", demo.Age, orNA(demo.Gender)),
		OPDIPDNo:   orNA(demo.OPDIPDNo),
		ReportDate: now.Format(dateLayout),

		Positive: d.IsPositive,
		Verdict:  d.Verdict(),
		Summary:  d.Summary(),
		Reasons:  d.Reasons,
		Criteria: met.Outcomes(),

		JointsValid:  met.AffectedJoints,
		XrayImage:    template.URL(image),
		XrayFileName: r.Labs.XrayReport,
	}

	pain := orNA(string(s.HasJointPain))
	if s.PainDuration != "" {
		pain += " (" + s.PainDuration + ")"
	}
	swelling := orNA(string(s.Swelling))
	if s.SwellingDuration != "" {
		swelling += " (Since: " + s.SwellingDuration + ")"
	}
	stiffness := orNA(string(s.Stiffness))
	if s.StiffnessDuration != "" {
		stiffness += " (" + s.StiffnessDuration + ")"
	}
	painTypes := make([]string, len(s.PainTypes))
	for i, p := range s.PainTypes {
		painTypes[i] = string(p)
	}

	v.Symptoms = []Line{
		{"Joint Pain", pain, !met.JointPain},
		{"Pain Onset", orNA(string(s.PainOnset)), !met.Onset},
		{"Pain Intensity", fmt.Sprintf("%d/%d", s.PainIntensity, patient.MaxPainIntensity), false},
		{"Pain Types", orNA(strings.Join(painTypes, ", ")), !met.PainType},
		{"Swelling", swelling, !met.Swelling},
		{"Stiffness", stiffness, !met.Stiffness},
		{"Crepitus", orNA(string(s.Crepitus)), !met.Crepitus},
		{"Shifting Pain", orNA(string(s.ShiftingPain)), !met.ShiftingPain},
		{"Warmth", orNA(string(s.Warmth)), !met.Warmth},
		{"Fever", orNA(string(s.Fever)), !met.Fever},
		{"Discoloration", orNA(string(s.Discoloration)), !met.Discoloration},
		{"Oil/Massage Effect", orNA(string(s.OilMassageEffect)), !met.OilEffect},
	}

	for _, j := range r.AffectedJoints {
		v.Joints = append(v.Joints, string(j))
	}

	keys := make([]string, 0, len(r.Labs.Values))
	for k := range r.Labs.Values {
		if k != labOther {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Labs = append(v.Labs, Line{Label: LabLabel(k), Value: orNA(r.Labs.Values[k])})
	}

	v.Details = []Line{
		{Label: "Address", Value: orNA(demo.Address)},
		{Label: "Occupation", Value: orNA(demo.Occupation)},
		{Label: "Contact", Value: orNA(demo.Contact)},
		{Label: "OPD/IPD No", Value: orNA(demo.OPDIPDNo)},
	}
	return v
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

// LabLabel turns a camelCase lab key into words: "serumUricAcid" becomes
// "serum Uric Acid".
func LabLabel(key string) string {
	var b strings.Builder
	for i, r := range key {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

var whitespace = regexp.MustCompile(`\s+`)

// FileName is the suggested file name for a saved copy of the report.
func FileName(r *patient.Record, now time.Time) string {
	name := whitespace.ReplaceAllString(strings.TrimSpace(r.Demographics.Name), "-")
	return fmt.Sprintf("Sandhigata-Vata-Report-%s-%s.pdf", name, now.Format(dateLayout))
}

var htmlReport = template.Must(template.New("report").Parse(htmlTemplate))

// Render writes the standalone HTML report.
func Render(w io.Writer, v View) error {
	return htmlReport.Execute(w, v)
}

// RenderText writes a plain-text summary of the report.
func RenderText(w io.Writer, v View) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", v.Title)
	fmt.Fprintf(&b, "Patient: %s (%s)\n", v.Name, v.AgeGender)
	fmt.Fprintf(&b, "OPD/IPD No: %s\n", v.OPDIPDNo)
	fmt.Fprintf(&b, "Report Date: %s\n\n", v.ReportDate)

	fmt.Fprintf(&b, "Result: %s\n%s\n", v.Verdict, v.Summary)
	for _, r := range v.Reasons {
		fmt.Fprintf(&b, "  - %s\n", r)
	}

	b.WriteString("\nCriteria:\n")
	for _, o := range v.Criteria {
		mark := "x"
		if o.Met {
			mark = "ok"
		}
		fmt.Fprintf(&b, "  [%s] %s\n", mark, o.Label)
	}

	b.WriteString("\nQuestionnaire:\n")
	for _, l := range v.Symptoms {
		fmt.Fprintf(&b, "  %s: %s\n", l.Label, l.Value)
	}

	joints := notAvailable
	if len(v.Joints) > 0 {
		joints = strings.Join(v.Joints, ", ")
	}
	fmt.Fprintf(&b, "\nAffected Joints: %s\n", joints)

	if len(v.Labs) > 0 {
		b.WriteString("\nLaboratory Results:\n")
		for _, l := range v.Labs {
			fmt.Fprintf(&b, "  %s: %s\n", l.Label, l.Value)
		}
	}
	if v.XrayFileName != "" {
		fmt.Fprintf(&b, "\nX-Ray: %s\n", v.XrayFileName)
	}

	b.WriteString("\nPatient Details:\n")
	for _, l := range v.Details {
		fmt.Fprintf(&b, "  %s: %s\n", l.Label, l.Value)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} - {{.Name}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #1f2937; margin: 24px; }
h1 { font-size: 20px; margin: 0 0 8px; }
h2 { font-size: 14px; border-bottom: 1px solid #e5e7eb; padding-bottom: 4px; }
.info span { display: inline-block; margin-right: 16px; }
.banner { padding: 12px; border-radius: 6px; margin: 16px 0; }
.positive { background: #dcfce7; color: #166534; }
.negative { background: #fee2e2; color: #991b1b; }
.failed { color: #b91c1c; font-weight: bold; }
.row { display: flex; padding: 2px 0; }
.label { width: 180px; font-weight: bold; }
.xray { max-width: 100%; max-height: 400px; border: 1px solid #d1d5db; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="info">
<span><b>Patient Name:</b> {{.Name}}</span>
<span><b>Age &amp; Gender:</b> {{.AgeGender}}</span>
<span><b>OPD/IPD No:</b> {{.OPDIPDNo}}</span>
<span><b>Report Date:</b> {{.ReportDate}}</span>
</div>

<div class="banner {{if .Positive}}positive{{else}}negative{{end}}">
<b>Result: {{.Verdict}}</b>
<p>{{.Summary}}</p>
{{- if .Reasons}}
<ul>
{{- range .Reasons}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
</div>

<h2>Diagnostic Criteria</h2>
{{- range .Criteria}}
<div class="row"><span class="label">{{.Label}}</span><span{{if not .Met}} class="failed"{{end}}>{{if .Met}}Met{{else}}Not met{{end}}</span></div>
{{- end}}

<h2>Questionnaire Responses</h2>
{{- range .Symptoms}}
<div class="row"><span class="label">{{.Label}}:</span><span{{if .Failed}} class="failed"{{end}}>{{.Value}}</span></div>
{{- end}}

<h2>Affected Joints</h2>
<p{{if not .JointsValid}} class="failed"{{end}}>{{if .Joints}}{{range $i, $j := .Joints}}{{if $i}}, {{end}}{{$j}}{{end}}{{else}}N/A{{end}}</p>
{{- if .Labs}}

<h2>Laboratory Results</h2>
{{- range .Labs}}
<div class="row"><span class="label">{{.Label}}</span><span>{{.Value}}</span></div>
{{- end}}
{{- end}}
{{- if .XrayImage}}

<h2>X-Ray Image</h2>
<img class="xray" src="{{.XrayImage}}" alt="X-ray">
{{- if .XrayFileName}}
<div>File: {{.XrayFileName}}</div>
{{- end}}
{{- end}}

<h2>Patient Details</h2>
{{- range .Details}}
<div class="row"><span class="label">{{.Label}}:</span><span>{{.Value}}</span></div>
{{- end}}
</body>
</html>
`

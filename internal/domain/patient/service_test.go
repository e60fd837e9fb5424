package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord(name string) *Record {
	return &Record{
		Demographics: Demographics{
			Name:       name,
			Age:        58,
			Gender:     "Female",
			Contact:    "9876543210",
			OPDIPDNo:   "OPD-1024",
			Occupation: "Teacher",
		},
		Symptoms: Symptoms{
			HasJointPain:      Yes,
			PainDuration:      "6 months",
			PainOnset:         OnsetGradual,
			PainIntensity:     6,
			PainTypes:         []PainType{PainAching},
			Swelling:          SwellingSometimes,
			SwellingDuration:  "1 week",
			Stiffness:         Yes,
			StiffnessDuration: "20 minutes",
			Crepitus:          Yes,
			ShiftingPain:      Yes,
			Warmth:            No,
			Fever:             No,
			Discoloration:     No,
			OilMassageEffect:  OilRelief,
		},
		AffectedJoints: []Joint{JointKnee},
		Labs:           Labs{Values: map[string]string{"esr": "14"}},
	}
}

// sizedRepo reports a fixed storage size so budget rules can be driven directly.
type sizedRepo struct {
	Repository
	size int64
}

func (s *sizedRepo) Size(context.Context) (int64, error) { return s.size, nil }

type recordingHook struct {
	saved   []string
	deleted []string
}

func (h *recordingHook) AfterSave(_ context.Context, r *Record) { h.saved = append(h.saved, r.ID) }
func (h *recordingHook) AfterDelete(_ context.Context, ids []string) {
	h.deleted = append(h.deleted, ids...)
}

type failingRepo struct {
	Repository
}

func (failingRepo) List(context.Context) ([]*Record, error) {
	return nil, errors.New("connection refused")
}

func newTestService(hooks ...Hook) *Service {
	svc := NewService(NewMemoryRepo(), 0, hooks...)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("patient-%d", n)
	}
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return svc
}

func TestService_Create(t *testing.T) {
	hook := &recordingHook{}
	svc := newTestService(hook)
	ctx := context.Background()

	r := validRecord("Asha")
	require.NoError(t, svc.Create(ctx, r))

	assert.Equal(t, "patient-1", r.ID)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), r.CreatedAt)
	assert.Equal(t, []string{"patient-1"}, hook.saved)

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Demographics.Name)
	assert.Equal(t, []PainType{PainAching}, got.Symptoms.PainTypes)
}

func TestService_CreateRejectsInvalid(t *testing.T) {
	hook := &recordingHook{}
	svc := newTestService(hook)

	r := validRecord("")
	err := svc.Create(context.Background(), r)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, hook.saved)

	_, total, err := svc.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestService_CreateNormalizes(t *testing.T) {
	svc := newTestService()
	r := validRecord("Asha")
	r.AffectedJoints = []Joint{JointKnee, JointKnee}
	r.Symptoms.Stiffness = No

	require.NoError(t, svc.Create(context.Background(), r))

	got, err := svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, []Joint{JointKnee}, got.AffectedJoints)
	assert.Empty(t, got.Symptoms.StiffnessDuration)
}

func TestService_SavePreservesCreatedAt(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	r := validRecord("Asha")
	require.NoError(t, svc.Create(ctx, r))
	created := r.CreatedAt

	update := validRecord("Asha Kulkarni")
	update.ID = r.ID
	update.CreatedAt = created.Add(48 * time.Hour)
	require.NoError(t, svc.Save(ctx, update))

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Kulkarni", got.Demographics.Name)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestService_SaveRequiresID(t *testing.T) {
	svc := newTestService()
	err := svc.Save(context.Background(), validRecord("Asha"))
	assert.EqualError(t, err, "id is required")
}

func TestService_SaveUnknownIDInserts(t *testing.T) {
	svc := newTestService()
	r := validRecord("Asha")
	r.ID = "imported-7"

	require.NoError(t, svc.Save(context.Background(), r))
	assert.False(t, r.CreatedAt.IsZero())

	_, err := svc.Get(context.Background(), "imported-7")
	assert.NoError(t, err)
}

func TestService_GetNotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ListMostRecentFirst(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, svc.Create(ctx, validRecord(name)))
	}

	items, total, err := svc.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].Demographics.Name)
	assert.Equal(t, "B", items[1].Demographics.Name)

	items, _, err = svc.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Demographics.Name)

	items, _, err = svc.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestService_ResaveMovesToFront(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	first := validRecord("A")
	require.NoError(t, svc.Create(ctx, first))
	require.NoError(t, svc.Create(ctx, validRecord("B")))

	require.NoError(t, svc.Save(ctx, first))

	items, _, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "A", items[0].Demographics.Name)
}

func TestService_Search(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	asha := validRecord("Asha Kulkarni")
	ravi := validRecord("Ravi Menon")
	ravi.Demographics.OPDIPDNo = "IPD-77"
	ravi.Demographics.Contact = "9000011111"
	require.NoError(t, svc.Create(ctx, asha))
	require.NoError(t, svc.Create(ctx, ravi))

	tests := []struct {
		query string
		want  []string
	}{
		{"asha", []string{"Asha Kulkarni"}},
		{"MENON", []string{"Ravi Menon"}},
		{"ipd-77", []string{"Ravi Menon"}},
		{"90000", []string{"Ravi Menon"}},
		{asha.ID, []string{"Asha Kulkarni"}},
		{"   ", []string{"Ravi Menon", "Asha Kulkarni"}},
		{"nobody", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := svc.Search(ctx, tt.query)
			require.NoError(t, err)
			var names []string
			for _, r := range got {
				names = append(names, r.Demographics.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestService_DeleteMany(t *testing.T) {
	hook := &recordingHook{}
	svc := newTestService(hook)
	ctx := context.Background()

	a, b, c := validRecord("A"), validRecord("B"), validRecord("C")
	for _, r := range []*Record{a, b, c} {
		require.NoError(t, svc.Create(ctx, r))
	}

	deleted, err := svc.DeleteMany(ctx, []string{a.ID, c.ID, "unknown", a.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	items, total, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, []string{a.ID, c.ID}, hook.deleted)
}

func TestService_DeleteManyEmptyIsNoop(t *testing.T) {
	hook := &recordingHook{}
	svc := newTestService(hook)
	deleted, err := svc.DeleteMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Empty(t, hook.deleted)
}

func TestService_DeleteManyUnknownIDsNotAnnounced(t *testing.T) {
	hook := &recordingHook{}
	svc := newTestService(hook)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, validRecord("A")))

	deleted, err := svc.DeleteMany(ctx, []string{"missing-1", "missing-2"})
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Empty(t, hook.deleted)

	_, total, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestService_ListClampsNegativeOffset(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for _, name := range []string{"A", "B"} {
		require.NoError(t, svc.Create(ctx, validRecord(name)))
	}

	items, total, err := svc.List(ctx, 1, -5)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Demographics.Name)
}

func TestService_Clear(t *testing.T) {
	hook := &recordingHook{}
	svc := newTestService(hook)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, validRecord("A")))
	require.NoError(t, svc.Create(ctx, validRecord("B")))

	require.NoError(t, svc.Clear(ctx))

	_, total, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.ElementsMatch(t, []string{"patient-1", "patient-2"}, hook.deleted)
}

func TestService_Stats(t *testing.T) {
	svc := NewService(&sizedRepo{Repository: NewMemoryRepo(), size: 2048}, 10240)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &StorageStats{
		PatientCount:      0,
		DataSizeKB:        2,
		AvailableSpaceKB:  10,
		UsagePercentage:   20,
		EstimatedCapacity: 2,
	}, stats)
}

func TestService_DefaultBudget(t *testing.T) {
	svc := NewService(NewMemoryRepo(), 0)
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5120, stats.AvailableSpaceKB)
	assert.Equal(t, 1048, stats.EstimatedCapacity)
}

func TestService_Capacity(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		canAdd  bool
		warning string
	}{
		{"plenty of room", 2000, true, ""},
		{"warning band", 7500, true, "Storage getting full"},
		{"add threshold reached", 8000, false, "Storage getting full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&sizedRepo{Repository: NewMemoryRepo(), size: tt.size}, 10000)
			c, err := svc.Capacity(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.canAdd, c.CanAddMore)
			assert.Equal(t, tt.warning, c.Warning)
		})
	}
}

func TestService_CreateRefusedWhenFull(t *testing.T) {
	hook := &recordingHook{}
	svc := NewService(&sizedRepo{Repository: NewMemoryRepo(), size: 8000}, 10000, hook)

	err := svc.Create(context.Background(), validRecord("Asha"))

	require.ErrorIs(t, err, ErrStorageFull)
	assert.Contains(t, err.Error(), "can only add 0 more patients")
	assert.Empty(t, hook.saved)
}

func TestService_StatsRepoError(t *testing.T) {
	svc := NewService(failingRepo{Repository: NewMemoryRepo()}, 0)
	_, err := svc.Stats(context.Background())
	assert.Error(t, err)
}

func TestService_ExportImportRoundTrip(t *testing.T) {
	src := newTestService()
	ctx := context.Background()
	for _, name := range []string{"A", "B"} {
		require.NoError(t, src.Create(ctx, validRecord(name)))
	}

	env, err := src.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExportVersion, env.Version)
	assert.Equal(t, 2, env.PatientCount)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	dst := newTestService()
	res := dst.Import(ctx, raw)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Imported)
	assert.Empty(t, res.Errors)

	items, _, err := dst.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].Demographics.Name)
	assert.Equal(t, "A", items[1].Demographics.Name)
}

func TestService_ImportSkipsExisting(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	existing := validRecord("A")
	require.NoError(t, svc.Create(ctx, existing))

	incoming := validRecord("A changed")
	incoming.ID = existing.ID
	fresh := validRecord("B")
	fresh.ID = "external-1"
	raw, err := json.Marshal(map[string]interface{}{"patients": []*Record{incoming, fresh}})
	require.NoError(t, err)

	res := svc.Import(ctx, raw)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Imported)

	got, err := svc.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Demographics.Name)
}

func TestService_ImportReportsInvalidRecords(t *testing.T) {
	svc := newTestService()
	bad := validRecord("")
	bad.ID = "bad-1"
	good := validRecord("Good")
	good.ID = "good-1"
	raw, err := json.Marshal(map[string]interface{}{"patients": []*Record{bad, good}})
	require.NoError(t, err)

	res := svc.Import(context.Background(), raw)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "patient bad-1")
}

func TestService_ImportInvalidFormat(t *testing.T) {
	svc := newTestService()

	res := svc.Import(context.Background(), []byte(`{"version":"1.0"}`))
	assert.False(t, res.Success)
	assert.Equal(t, []string{"Invalid data format"}, res.Errors)

	res = svc.Import(context.Background(), []byte(`not json`))
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Import failed: ")
}

func TestService_ImportExceedsCapacity(t *testing.T) {
	svc := NewService(NewMemoryRepo(), 10000)
	raw, err := json.Marshal(map[string]interface{}{
		"patients": []*Record{validRecord("A"), validRecord("B"), validRecord("C")},
	})
	require.NoError(t, err)

	res := svc.Import(context.Background(), raw)
	assert.False(t, res.Success)
	assert.Zero(t, res.Imported)
	assert.Equal(t, []string{"Import would exceed storage capacity. Max capacity: 2 patients"}, res.Errors)
}

package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultStorageBudget matches the quota of a browser local store.
	DefaultStorageBudget int64 = 5 * 1024 * 1024
	// EstimatedRecordSize is the planning figure per patient, images included.
	EstimatedRecordSize int64 = 5000
	estimatedRecordKB         = 5

	addThresholdPercent  = 80
	warnThresholdPercent = 70

	ExportVersion = "1.0"
)

// Hook observes successful writes. Hooks run after the store has accepted the
// change and cannot veto it.
type Hook interface {
	AfterSave(ctx context.Context, r *Record)
	AfterDelete(ctx context.Context, ids []string)
}

type Service struct {
	repo   Repository
	budget int64
	hooks  []Hook
	now    func() time.Time
	newID  func() string
}

func NewService(repo Repository, budget int64, hooks ...Hook) *Service {
	if budget <= 0 {
		budget = DefaultStorageBudget
	}
	return &Service{
		repo:   repo,
		budget: budget,
		hooks:  hooks,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create assigns the immutable id and creation time, then stores the record.
func (s *Service) Create(ctx context.Context, r *Record) error {
	r.ID = s.newID()
	r.CreatedAt = s.now().UTC()
	return s.store(ctx, r)
}

// Save replaces the record stored under r.ID. The original creation time is
// kept when the record already exists.
func (s *Service) Save(ctx context.Context, r *Record) error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	existing, err := s.repo.Get(ctx, r.ID)
	switch {
	case err == nil:
		r.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrNotFound):
		if r.CreatedAt.IsZero() {
			r.CreatedAt = s.now().UTC()
		}
	default:
		return err
	}
	return s.store(ctx, r)
}

func (s *Service) store(ctx context.Context, r *Record) error {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return err
	}

	capacity, err := s.Capacity(ctx)
	if err != nil {
		return err
	}
	if !capacity.CanAddMore {
		return fmt.Errorf("%w: can only add %d more patients, export and delete old records",
			ErrStorageFull, capacity.MaxAdditionalPatients)
	}

	if err := s.repo.Save(ctx, r); err != nil {
		return err
	}
	for _, h := range s.hooks {
		h.AfterSave(ctx, r)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.Get(ctx, id)
}

// List returns one window of records, most recently saved first, and the total.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	return window(all, limit, offset), len(all), nil
}

// window returns at most limit records starting at offset. A non-positive
// limit means no upper bound.
func window(all []*Record, limit, offset int) []*Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*Record{}
	}
	end := len(all)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return all[offset:end]
}

// Search matches the query case-insensitively against name, id, OPD/IPD
// number and contact. A blank query returns every record.
func (s *Service) Search(ctx context.Context, query string) ([]*Record, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return all, nil
	}

	out := []*Record{}
	for _, r := range all {
		if matches(r, term) {
			out = append(out, r)
		}
	}
	return out, nil
}

func matches(r *Record, term string) bool {
	for _, field := range []string{r.Demographics.Name, r.ID, r.Demographics.OPDIPDNo, r.Demographics.Contact} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.DeleteMany(ctx, []string{id})
	return err
}

// DeleteMany removes every listed id and returns how many records it removed.
// Unknown and repeated ids are ignored, and hooks only hear about the ids
// that were present.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (int, error) {
	present := make([]string, 0, len(ids))
	for _, id := range dedupe(ids) {
		if _, err := s.repo.Get(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return 0, err
		}
		present = append(present, id)
	}
	if len(present) == 0 {
		return 0, nil
	}
	if err := s.repo.DeleteMany(ctx, present); err != nil {
		return 0, err
	}
	for _, h := range s.hooks {
		h.AfterDelete(ctx, present)
	}
	return len(present), nil
}

func (s *Service) Clear(ctx context.Context) error {
	all, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	ids := make([]string, len(all))
	for i, r := range all {
		ids[i] = r.ID
	}
	if len(ids) > 0 {
		for _, h := range s.hooks {
			h.AfterDelete(ctx, ids)
		}
	}
	return nil
}

// -- Storage budget --

type StorageStats struct {
	PatientCount      int `json:"patientCount"`
	DataSizeKB        int `json:"dataSizeKB"`
	AvailableSpaceKB  int `json:"availableSpaceKB"`
	UsagePercentage   int `json:"usagePercentage"`
	EstimatedCapacity int `json:"estimatedCapacity"`
}

type Capacity struct {
	CanAddMore            bool   `json:"canAddMore"`
	RemainingSpaceKB      int    `json:"remainingSpace"`
	MaxAdditionalPatients int    `json:"maxAdditionalPatients"`
	Warning               string `json:"warning,omitempty"`
}

func (s *Service) Stats(ctx context.Context) (*StorageStats, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	size, err := s.repo.Size(ctx)
	if err != nil {
		return nil, err
	}
	return &StorageStats{
		PatientCount:      len(all),
		DataSizeKB:        int(math.Round(float64(size) / 1024)),
		AvailableSpaceKB:  int(math.Round(float64(s.budget) / 1024)),
		UsagePercentage:   int(math.Round(float64(size) / float64(s.budget) * 100)),
		EstimatedCapacity: int(s.budget / EstimatedRecordSize),
	}, nil
}

func (s *Service) Capacity(ctx context.Context) (*Capacity, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	remaining := stats.AvailableSpaceKB - stats.DataSizeKB
	c := &Capacity{
		CanAddMore:            stats.UsagePercentage < addThresholdPercent,
		RemainingSpaceKB:      remaining,
		MaxAdditionalPatients: int(math.Floor(float64(remaining) / estimatedRecordKB)),
	}
	if stats.UsagePercentage > warnThresholdPercent {
		c.Warning = "Storage getting full"
	}
	return c, nil
}

// -- Export / import --

type ExportEnvelope struct {
	ExportDate   time.Time `json:"exportDate"`
	Version      string    `json:"version"`
	PatientCount int       `json:"patientCount"`
	Patients     []*Record `json:"patients"`
}

type ImportResult struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

func (s *Service) Export(ctx context.Context) (*ExportEnvelope, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return &ExportEnvelope{
		ExportDate:   s.now().UTC(),
		Version:      ExportVersion,
		PatientCount: len(all),
		Patients:     all,
	}, nil
}

// Import merges an export envelope into the store. Records whose id already
// exists are skipped; the import is refused outright when it could exceed the
// estimated capacity.
func (s *Service) Import(ctx context.Context, data []byte) *ImportResult {
	res := &ImportResult{Errors: []string{}}
	fail := func(msg string) *ImportResult {
		res.Errors = append(res.Errors, msg)
		res.Success = false
		return res
	}

	var envelope struct {
		Patients []*Record `json:"patients"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fail("Import failed: " + err.Error())
	}
	if envelope.Patients == nil {
		return fail("Invalid data format")
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return fail("Import failed: " + err.Error())
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return fail("Import failed: " + err.Error())
	}
	if len(existing)+len(envelope.Patients) > stats.EstimatedCapacity {
		return fail(fmt.Sprintf("Import would exceed storage capacity. Max capacity: %d patients",
			stats.EstimatedCapacity))
	}

	known := make(map[string]bool, len(existing))
	for _, r := range existing {
		known[r.ID] = true
	}

	// Saved in reverse so the first incoming record ends up most recent.
	for i := len(envelope.Patients) - 1; i >= 0; i-- {
		r := envelope.Patients[i]
		if r == nil {
			continue
		}
		if r.ID == "" {
			r.ID = s.newID()
		}
		if known[r.ID] {
			continue
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = s.now().UTC()
		}
		r.Normalize()
		if err := r.Validate(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("patient %s: %v", r.ID, err))
			continue
		}
		if err := s.repo.Save(ctx, r); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("patient %s: %v", r.ID, err))
			continue
		}
		known[r.ID] = true
		res.Imported++
		for _, h := range s.hooks {
			h.AfterSave(ctx, r)
		}
	}

	res.Success = len(res.Errors) == 0
	return res
}

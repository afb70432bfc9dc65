package recommend

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/service"
	"github.com/Veraticus/spice-insights/internal/storage"
)

// TemplatesKey is the KV key budget templates are stored under.
const TemplatesKey = "budget_templates"

//go:embed defaults.toml
var defaultTemplates []byte

type templateFile struct {
	Templates []model.BudgetTemplate `toml:"templates"`
}

// TemplateStore persists user-created budget templates.
type TemplateStore struct {
	kv    service.KVStore
	clock func() time.Time
	mu    sync.Mutex
}

// NewTemplateStore creates a template store backed by kv.
func NewTemplateStore(kv service.KVStore) *TemplateStore {
	return &TemplateStore{kv: kv, clock: time.Now}
}

// List returns all stored templates in insertion order.
func (s *TemplateStore) List(ctx context.Context) ([]model.BudgetTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns the template with the given ID.
func (s *TemplateStore) Get(ctx context.Context, id string) (*model.BudgetTemplate, error) {
	templates, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range templates {
		if templates[i].ID == id {
			return &templates[i], nil
		}
	}
	return nil, fmt.Errorf("template %s: %w", id, common.ErrNotFound)
}

// Save adds a template, or replaces the one with the same ID. New templates
// are given an ID and creation time.
func (s *TemplateStore) Save(ctx context.Context, tmpl *model.BudgetTemplate) error {
	if tmpl.ID == "" {
		tmpl.ID = uuid.New().String()
	}
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = s.clock().UTC()
	}
	tmpl.RefreshMetadata()
	if err := tmpl.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.load(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range templates {
		if templates[i].ID == tmpl.ID {
			templates[i] = *tmpl
			replaced = true
			break
		}
	}
	if !replaced {
		templates = append(templates, *tmpl)
	}
	return s.store(ctx, templates)
}

// Delete removes a template.
func (s *TemplateStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range templates {
		if templates[i].ID == id {
			return s.store(ctx, append(templates[:i], templates[i+1:]...))
		}
	}
	return fmt.Errorf("template %s: %w", id, common.ErrNotFound)
}

// RecordUsage counts one more use of a template and folds rating into its
// running average.
func (s *TemplateStore) RecordUsage(ctx context.Context, id string, rating float64) error {
	if rating < 1 || rating > maxRating {
		return common.InvalidInputf("rating must be between 1 and %.0f, got %.2f", maxRating, rating)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range templates {
		if templates[i].ID != id {
			continue
		}
		usage := &templates[i].Usage
		uses := float64(usage.TimesUsed)
		usage.AvgRating = (usage.AvgRating*uses + rating) / (uses + 1)
		usage.TimesUsed++
		return s.store(ctx, templates)
	}
	return fmt.Errorf("template %s: %w", id, common.ErrNotFound)
}

// Export returns every template as indented JSON.
func (s *TemplateStore) Export(ctx context.Context) ([]byte, error) {
	templates, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(templates, "", "  ")
}

// Import replaces the stored templates with the JSON produced by Export.
func (s *TemplateStore) Import(ctx context.Context, data []byte) (int, error) {
	var templates []model.BudgetTemplate
	if err := json.Unmarshal(data, &templates); err != nil {
		return 0, fmt.Errorf("%w: invalid template export: %w", common.ErrInvalidInput, err)
	}
	seen := make(map[string]bool, len(templates))
	for i := range templates {
		if err := templates[i].Validate(); err != nil {
			return 0, fmt.Errorf("%w: template at index %d: %w", common.ErrInvalidInput, i, err)
		}
		if seen[templates[i].ID] {
			return 0, common.InvalidInputf("duplicate template %q", templates[i].ID)
		}
		seen[templates[i].ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store(ctx, templates); err != nil {
		return 0, err
	}
	return len(templates), nil
}

// SeedDefaults adds the built-in starter templates that are not already stored.
func (s *TemplateStore) SeedDefaults(ctx context.Context) (int, error) {
	builtin, err := DefaultTemplates()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	existing := make(map[string]bool, len(templates))
	for _, t := range templates {
		existing[t.ID] = true
	}

	added := 0
	now := s.clock().UTC()
	for _, t := range builtin {
		if existing[t.ID] {
			continue
		}
		t.CreatedAt = now
		templates = append(templates, t)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	slog.Info("Seeded budget templates", "count", added)
	return added, s.store(ctx, templates)
}

// DefaultTemplates decodes the built-in starter templates.
func DefaultTemplates() ([]model.BudgetTemplate, error) {
	var file templateFile
	if err := toml.Unmarshal(defaultTemplates, &file); err != nil {
		return nil, fmt.Errorf("failed to decode built-in templates: %w", err)
	}
	for i := range file.Templates {
		file.Templates[i].RefreshMetadata()
		if err := file.Templates[i].Validate(); err != nil {
			return nil, fmt.Errorf("built-in template %d: %w", i, err)
		}
	}
	return file.Templates, nil
}

func (s *TemplateStore) load(ctx context.Context) ([]model.BudgetTemplate, error) {
	var templates []model.BudgetTemplate
	if _, err := storage.GetJSON(ctx, s.kv, TemplatesKey, &templates); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	if templates == nil {
		templates = []model.BudgetTemplate{}
	}
	return templates, nil
}

func (s *TemplateStore) store(ctx context.Context, templates []model.BudgetTemplate) error {
	if err := storage.SetJSON(ctx, s.kv, TemplatesKey, templates); err != nil {
		return fmt.Errorf("failed to save templates: %w", err)
	}
	return nil
}

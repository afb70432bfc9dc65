package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/storage"
)

func newTestStore() *TemplateStore {
	store := NewTemplateStore(storage.NewMemoryKV())
	store.clock = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	return store
}

func sampleTemplate(name string) *model.BudgetTemplate {
	return &model.BudgetTemplate{
		Name: name,
		Budgets: []model.TemplateBudget{
			{Category: "Groceries", Amount: 400},
			{Category: "Rent", Amount: 1200},
		},
		Metadata: model.TemplateMetadata{TargetAudience: "renters", Difficulty: "beginner"},
	}
}

func TestTemplateStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	tmpl := sampleTemplate("Renter")
	require.NoError(t, store.Save(ctx, tmpl))

	assert.NotEmpty(t, tmpl.ID)
	assert.Equal(t, 2, tmpl.Metadata.CategoryCount)
	assert.InDelta(t, 1600.0, tmpl.Metadata.TotalAmount, 1e-9)

	got, err := store.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, *tmpl, *got)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTemplateStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	tmpl := sampleTemplate("Renter")
	require.NoError(t, store.Save(ctx, tmpl))

	tmpl.Name = "Renter v2"
	require.NoError(t, store.Save(ctx, tmpl))

	templates, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "Renter v2", templates[0].Name)
}

func TestTemplateStore_SaveInvalid(t *testing.T) {
	err := newTestStore().Save(context.Background(), &model.BudgetTemplate{Name: "Empty"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestTemplateStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	tmpl := sampleTemplate("Renter")
	require.NoError(t, store.Save(ctx, tmpl))
	require.NoError(t, store.Delete(ctx, tmpl.ID))

	templates, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, templates)

	assert.ErrorIs(t, store.Delete(ctx, tmpl.ID), common.ErrNotFound)
}

func TestTemplateStore_RecordUsage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	tmpl := sampleTemplate("Renter")
	require.NoError(t, store.Save(ctx, tmpl))

	require.NoError(t, store.RecordUsage(ctx, tmpl.ID, 5))
	require.NoError(t, store.RecordUsage(ctx, tmpl.ID, 3))
	require.NoError(t, store.RecordUsage(ctx, tmpl.ID, 4))

	got, err := store.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Usage.TimesUsed)
	assert.InDelta(t, 4.0, got.Usage.AvgRating, 1e-9)

	assert.ErrorIs(t, store.RecordUsage(ctx, tmpl.ID, 6), common.ErrInvalidInput)
	assert.ErrorIs(t, store.RecordUsage(ctx, tmpl.ID, 0), common.ErrInvalidInput)
	assert.ErrorIs(t, store.RecordUsage(ctx, "missing", 4), common.ErrNotFound)
}

func TestTemplateStore_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := newTestStore()

	for _, name := range []string{"Renter", "Owner"} {
		require.NoError(t, source.Save(ctx, sampleTemplate(name)))
	}
	require.NoError(t, source.RecordUsage(ctx, mustList(t, source)[0].ID, 4))

	exported, err := source.Export(ctx)
	require.NoError(t, err)

	target := newTestStore()
	n, err := target.Import(ctx, exported)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, mustList(t, source), mustList(t, target))

	reexported, err := target.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(exported), string(reexported))
}

func TestTemplateStore_ImportRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{"},
		{name: "missing name", data: `[{"id":"a","budgets":[{"category":"Food","amount":1}]}]`},
		{name: "duplicate id", data: `[{"id":"a","name":"A","budgets":[{"category":"Food","amount":1}]},{"id":"a","name":"B","budgets":[{"category":"Food","amount":1}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestStore().Import(context.Background(), []byte(tt.data))
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestTemplateStore_SeedDefaults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	builtin, err := DefaultTemplates()
	require.NoError(t, err)
	require.NotEmpty(t, builtin)

	added, err := store.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(builtin), added)

	// Seeding again adds nothing
	added, err = store.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)

	student, err := store.Get(ctx, "starter-student")
	require.NoError(t, err)
	assert.Equal(t, "Student Essentials", student.Name)
	assert.Equal(t, 4, student.Metadata.CategoryCount)
	assert.InDelta(t, 900000.0, student.Metadata.TotalAmount, 1e-9)
}

func mustList(t *testing.T, store *TemplateStore) []model.BudgetTemplate {
	t.Helper()
	templates, err := store.List(context.Background())
	require.NoError(t, err)
	return templates
}

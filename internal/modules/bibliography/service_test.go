package bibliography

import (
	"context"
	"testing"
	"time"

	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/domain"
	testingpkg "github.com/holdfast/holdfast/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *Repository) {
	t.Helper()
	db, _ := testingpkg.NewTestDB(t, "ledger")
	repo := NewRepository(db.Conn(), zerolog.Nop())
	return NewService(repo, config.DefaultCatalog(), zerolog.Nop()), repo
}

func TestService_AddAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.Add(ctx, domain.BibliographyItem{
		Title:    "  The Intelligent Investor ",
		Author:   "Benjamin Graham",
		Year:     testingpkg.Ptr(1949),
		Category: "books",
	})
	require.NoError(t, err)
	assert.NotZero(t, item.ID)
	assert.Equal(t, "The Intelligent Investor", item.Title)
	assert.Equal(t, "Books", item.Category)

	got, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Benjamin Graham", got.Author)
	require.NotNil(t, got.Year)
	assert.Equal(t, 1949, *got.Year)
	assert.Empty(t, got.Link)
}

func TestService_DefaultCategory(t *testing.T) {
	svc, _ := newTestService(t)

	item, err := svc.Add(context.Background(), domain.BibliographyItem{Title: "Notes"})
	require.NoError(t, err)
	assert.Equal(t, "Other", item.Category)
	assert.Nil(t, item.Year)
}

func TestService_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, domain.BibliographyItem{Title: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Add(ctx, domain.BibliographyItem{Title: "x", Year: testingpkg.Ptr(0)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Add(ctx, domain.BibliographyItem{Title: "x", Category: "Podcasts"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.List(ctx, "Podcasts")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_ListNewestFirst(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.Create(ctx, domain.BibliographyItem{Title: "old", Category: "Books", AddedAt: base})
	require.NoError(t, err)
	_, err = repo.Create(ctx, domain.BibliographyItem{Title: "new", Category: "Papers", AddedAt: base.AddDate(0, 1, 0)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, domain.BibliographyItem{Title: "same time, later id", Category: "Books", AddedAt: base})
	require.NoError(t, err)

	items, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "new", items[0].Title)
	assert.Equal(t, "same time, later id", items[1].Title)
	assert.Equal(t, "old", items[2].Title)

	books, err := svc.List(ctx, "books")
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestService_Delete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.Add(ctx, domain.BibliographyItem{Title: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, item.ID))
	assert.ErrorIs(t, svc.Delete(ctx, item.ID), domain.ErrNotFound)

	_, err = svc.Get(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

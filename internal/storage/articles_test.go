package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/harvester/internal/domain"
)

func newMockRepo(t *testing.T) (*ArticleRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewArticleRepository(sqlx.NewDb(db, "postgres")), mock
}

func testArticle() *domain.Article {
	return &domain.Article{
		ID:          "a1",
		SourceID:    "src-1",
		Title:       "Headline",
		Link:        "https://example.com/a1",
		Fingerprint: "fp-a1",
		CreatedAt:   time.Now(),
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unique violation code",
			err:  &pq.Error{Code: "23505"},
			want: true,
		},
		{
			name: "wrapped unique violation",
			err:  fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}),
			want: true,
		},
		{
			name: "other pq error code",
			err:  &pq.Error{Code: "23503"},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestInsertNewArticle(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO articles").
		WillReturnResult(sqlmock.NewResult(0, 1))

	isNew, err := repo.Insert(context.Background(), testArticle())
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDuplicateIsNotNew(t *testing.T) {
	repo, mock := newMockRepo(t)

	// A colliding link or fingerprint trips the unique constraint; the
	// repository reports "not new" instead of failing the crawl item.
	mock.ExpectExec("INSERT INTO articles").
		WillReturnError(&pq.Error{Code: "23505"})

	isNew, err := repo.Insert(context.Background(), testArticle())
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPropagatesOtherErrors(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO articles").
		WillReturnError(errors.New("connection reset"))

	isNew, err := repo.Insert(context.Background(), testArticle())
	assert.Error(t, err)
	assert.False(t, isNew)
}

func TestFindByFingerprintOrLinkMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM articles").
		WillReturnError(sql.ErrNoRows)

	article, err := repo.FindByFingerprintOrLink(context.Background(), "fp-a1", "https://example.com/a1")
	require.NoError(t, err)
	assert.Nil(t, article)
}

func TestFindByFingerprintOrLinkFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{
		"id", "source_id", "title", "link", "content", "fingerprint", "depth", "read", "created_at",
	}).AddRow("a1", "src-1", "Headline", "https://example.com/a1", "", "fp-a1", 0, false, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM articles").
		WithArgs("fp-a1", "https://example.com/a1").
		WillReturnRows(rows)

	article, err := repo.FindByFingerprintOrLink(context.Background(), "fp-a1", "https://example.com/a1")
	require.NoError(t, err)
	require.NotNil(t, article)
	assert.Equal(t, "a1", article.ID)
	assert.Equal(t, "fp-a1", article.Fingerprint)
}

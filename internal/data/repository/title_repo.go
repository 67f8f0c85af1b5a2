package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-review/internal/data/entity"
	"media-review/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// TitleFilter narrows title listings. Zero values are ignored.
type TitleFilter struct {
	Genre    string // genre slug
	Category string // category slug
	Name     string // case-insensitive substring
	Year     *int
}

type TitleRepository interface {
	// Create inserts the title and its genre links in one transaction.
	Create(ctx context.Context, title *entity.Title, genreIDs []uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Title, error)
	FindAll(ctx context.Context, filter TitleFilter, limit, offset int) ([]*entity.Title, error)
	CountAll(ctx context.Context, filter TitleFilter) (int64, error)
	// Update saves the title fields. A nil genreIDs keeps the current genres,
	// anything else replaces them.
	Update(ctx context.Context, title *entity.Title, genreIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type titleRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTitleRepository(db database.PgxIface, log *zap.Logger) TitleRepository {
	return &titleRepository{
		db:  db,
		log: log.With(zap.String("repository", "title")),
	}
}

// Rating inputs are aggregated on every read; nothing is cached on titles.
const titleSelect = `
	SELECT t.id, t.name, t.description, t.year, t.category_id, t.created_at, t.updated_at,
	       c.id, c.name, c.slug, c.created_at,
	       COALESCE(rs.score_sum, 0), rs.review_count
	FROM titles t
	LEFT JOIN categories c ON c.id = t.category_id
	LEFT JOIN LATERAL (
		SELECT SUM(r.score) AS score_sum, COUNT(*) AS review_count
		FROM reviews r
		WHERE r.title_id = t.id
	) rs ON TRUE
`

func scanTitle(row pgx.Row) (*entity.Title, error) {
	var (
		title        entity.Title
		catID        *uuid.UUID
		catName      *string
		catSlug      *string
		catCreatedAt *time.Time
	)

	err := row.Scan(
		&title.ID,
		&title.Name,
		&title.Description,
		&title.Year,
		&title.CategoryID,
		&title.CreatedAt,
		&title.UpdatedAt,
		&catID,
		&catName,
		&catSlug,
		&catCreatedAt,
		&title.ScoreSum,
		&title.ReviewCount,
	)
	if err != nil {
		return nil, err
	}

	if catID != nil {
		title.Category = &entity.Category{
			BaseSimple: entity.BaseSimple{ID: *catID, CreatedAt: *catCreatedAt},
			Name:       *catName,
			Slug:       *catSlug,
		}
	}
	title.Genres = []entity.Genre{}

	return &title, nil
}

func (r *titleRepository) Create(ctx context.Context, title *entity.Title, genreIDs []uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("begin create title: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO titles (id, name, description, year, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.Exec(ctx, query,
		title.ID,
		title.Name,
		title.Description,
		title.Year,
		title.CategoryID,
		title.CreatedAt,
		title.UpdatedAt,
	)
	if err != nil {
		err = translate(err)
		if !errors.Is(err, ErrDuplicate) {
			r.log.Error("Failed to create title",
				zap.Error(err),
				zap.String("name", title.Name),
			)
		}
		return fmt.Errorf("create title %s: %w", title.Name, err)
	}

	if err := r.insertGenres(ctx, tx, title.ID, genreIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit title", zap.Error(err), zap.String("title_id", title.ID.String()))
		return fmt.Errorf("commit create title: %w", err)
	}

	return nil
}

func (r *titleRepository) insertGenres(ctx context.Context, tx pgx.Tx, titleID uuid.UUID, genreIDs []uuid.UUID) error {
	if len(genreIDs) == 0 {
		return nil
	}

	// Build batch insert
	query := `INSERT INTO title_genres (title_id, genre_id) VALUES `
	args := make([]any, 0, len(genreIDs)*2)

	for i, genreID := range genreIDs {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2)
		args = append(args, titleID, genreID)
	}
	query += " ON CONFLICT DO NOTHING"

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		r.log.Error("Failed to link title genres",
			zap.Error(err),
			zap.String("title_id", titleID.String()),
			zap.Int("count", len(genreIDs)),
		)
		return fmt.Errorf("link genres to title %s: %w", titleID.String(), err)
	}

	return nil
}

func (r *titleRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Title, error) {
	title, err := scanTitle(r.db.QueryRow(ctx, titleSelect+" WHERE t.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find title by ID",
			zap.Error(err),
			zap.String("title_id", id.String()),
		)
		return nil, fmt.Errorf("find title by ID %s: %w", id.String(), err)
	}

	if err := r.loadGenres(ctx, []*entity.Title{title}); err != nil {
		return nil, err
	}

	return title, nil
}

// buildWhere appends the filter conditions and returns the next placeholder number.
func buildWhere(b *strings.Builder, filter TitleFilter, args *[]any) int {
	argCount := 1
	conds := []string{}

	if filter.Genre != "" {
		conds = append(conds, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM title_genres tg
			JOIN genres g ON g.id = tg.genre_id
			WHERE tg.title_id = t.id AND g.slug = $%d)`, argCount))
		*args = append(*args, filter.Genre)
		argCount++
	}
	if filter.Category != "" {
		conds = append(conds, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM categories fc
			WHERE fc.id = t.category_id AND fc.slug = $%d)`, argCount))
		*args = append(*args, filter.Category)
		argCount++
	}
	if filter.Name != "" {
		conds = append(conds, fmt.Sprintf("t.name ILIKE '%%' || $%d || '%%'", argCount))
		*args = append(*args, escapeLike(filter.Name))
		argCount++
	}
	if filter.Year != nil {
		conds = append(conds, fmt.Sprintf("t.year = $%d", argCount))
		*args = append(*args, *filter.Year)
		argCount++
	}

	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	return argCount
}

func (r *titleRepository) FindAll(ctx context.Context, filter TitleFilter, limit, offset int) ([]*entity.Title, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(titleSelect)

	args := []any{}
	argCount := buildWhere(&queryBuilder, filter, &args)

	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY t.name, t.id LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		r.log.Error("Failed to find titles",
			zap.Error(err),
			zap.Int("offset", offset),
			zap.Int("limit", limit),
		)
		return nil, fmt.Errorf("find titles: %w", err)
	}
	defer rows.Close()

	titles := []*entity.Title{}
	for rows.Next() {
		title, err := scanTitle(rows)
		if err != nil {
			r.log.Error("Failed to scan title row", zap.Error(err))
			return nil, fmt.Errorf("scan title row: %w", err)
		}
		titles = append(titles, title)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Rows iteration error", zap.Error(err))
		return nil, fmt.Errorf("iterate title rows: %w", err)
	}
	rows.Close()

	if err := r.loadGenres(ctx, titles); err != nil {
		return nil, err
	}

	return titles, nil
}

func (r *titleRepository) CountAll(ctx context.Context, filter TitleFilter) (int64, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT COUNT(*) FROM titles t`)

	args := []any{}
	buildWhere(&queryBuilder, filter, &args)

	var total int64
	if err := r.db.QueryRow(ctx, queryBuilder.String(), args...).Scan(&total); err != nil {
		r.log.Error("Failed to count titles", zap.Error(err))
		return 0, fmt.Errorf("count titles: %w", err)
	}

	return total, nil
}

// loadGenres fills Genres for all titles with a single query.
func (r *titleRepository) loadGenres(ctx context.Context, titles []*entity.Title) error {
	if len(titles) == 0 {
		return nil
	}

	ids := make([]string, 0, len(titles))
	byID := make(map[uuid.UUID]*entity.Title, len(titles))
	for _, t := range titles {
		ids = append(ids, t.ID.String())
		byID[t.ID] = t
	}

	query := `
		SELECT tg.title_id, g.id, g.name, g.slug, g.created_at
		FROM title_genres tg
		JOIN genres g ON g.id = tg.genre_id
		WHERE tg.title_id = ANY($1::uuid[])
		ORDER BY g.name, g.slug
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to load title genres", zap.Error(err), zap.Int("titles", len(titles)))
		return fmt.Errorf("load title genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			titleID uuid.UUID
			genre   entity.Genre
		)
		if err := rows.Scan(&titleID, &genre.ID, &genre.Name, &genre.Slug, &genre.CreatedAt); err != nil {
			r.log.Error("Failed to scan title genre row", zap.Error(err))
			return fmt.Errorf("scan title genre row: %w", err)
		}
		if t, ok := byID[titleID]; ok {
			t.Genres = append(t.Genres, genre)
		}
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Rows iteration error", zap.Error(err))
		return fmt.Errorf("iterate title genre rows: %w", err)
	}

	return nil
}

func (r *titleRepository) Update(ctx context.Context, title *entity.Title, genreIDs []uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("begin update title: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE titles
		SET name = $2, description = $3, year = $4, category_id = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query,
		title.ID,
		title.Name,
		title.Description,
		title.Year,
		title.CategoryID,
		title.UpdatedAt,
	)
	if err != nil {
		err = translate(err)
		if !errors.Is(err, ErrDuplicate) {
			r.log.Error("Failed to update title",
				zap.Error(err),
				zap.String("title_id", title.ID.String()),
			)
		}
		return fmt.Errorf("update title %s: %w", title.ID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update title %s: %w", title.ID.String(), ErrNotFound)
	}

	if genreIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM title_genres WHERE title_id = $1`, title.ID); err != nil {
			r.log.Error("Failed to clear title genres",
				zap.Error(err),
				zap.String("title_id", title.ID.String()),
			)
			return fmt.Errorf("clear genres of title %s: %w", title.ID.String(), err)
		}
		if err := r.insertGenres(ctx, tx, title.ID, genreIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit title", zap.Error(err), zap.String("title_id", title.ID.String()))
		return fmt.Errorf("commit update title: %w", err)
	}

	return nil
}

func (r *titleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM titles WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete title",
			zap.Error(err),
			zap.String("title_id", id.String()),
		)
		return fmt.Errorf("delete title %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete title %s: %w", id.String(), ErrNotFound)
	}

	r.log.Info("Title deleted", zap.String("title_id", id.String()))
	return nil
}

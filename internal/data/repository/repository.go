package repository

import (
	"errors"
	"fmt"
	"strings"

	"media-review/pkg/database"

	"go.uber.org/zap"
)

// Unique constraint names from migrations/000001_init.up.sql.
const (
	ConstraintUsername      = "users_username_key"
	ConstraintEmail         = "users_email_key"
	ConstraintCategorySlug  = "categories_slug_key"
	ConstraintGenreSlug     = "genres_slug_key"
	ConstraintTitleCategory = "titles_name_category_key"
	ConstraintReviewAuthor  = "reviews_author_title_key"
)

var (
	// ErrDuplicate matches any *DuplicateError.
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotFound is returned by Update and Delete when no row matched.
	ErrNotFound = errors.New("record not found")
)

// DuplicateError reports a unique constraint violation raised by the database.
type DuplicateError struct {
	Constraint string
	Err        error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate record (%s)", e.Constraint)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

func (e *DuplicateError) Unwrap() error { return e.Err }

// DuplicateConstraint returns the violated constraint name when err is a
// *DuplicateError.
func DuplicateConstraint(err error) (string, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Constraint, true
	}
	return "", false
}

func translate(err error) error {
	if database.IsUniqueViolation(err) {
		return &DuplicateError{Constraint: database.ConstraintName(err), Err: err}
	}
	return err
}

// ListParams is the common pagination and search input of list queries.
type ListParams struct {
	Limit  int
	Offset int
	Search string
}

// escapeLike escapes LIKE wildcards so search input is matched literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type Repository struct {
	User     UserRepository
	Category CategoryRepository
	Genre    GenreRepository
	Title    TitleRepository
	Review   ReviewRepository
	Comment  CommentRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:     NewUserRepository(db, log),
		Category: NewCategoryRepository(db, log),
		Genre:    NewGenreRepository(db, log),
		Title:    NewTitleRepository(db, log),
		Review:   NewReviewRepository(db, log),
		Comment:  NewCommentRepository(db, log),
	}
}

package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"media-review/internal/data/entity"
	"media-review/internal/data/repository"
	"media-review/pkg/mailer"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the database. It enforces the same
// unique constraints and cascades as the SQL schema.
type memStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*entity.User
	categories map[uuid.UUID]*entity.Category
	genres     map[uuid.UUID]*entity.Genre
	titles     map[uuid.UUID]*entity.Title
	links      map[uuid.UUID][]uuid.UUID // title -> genres
	reviews    map[uuid.UUID]*entity.Review
	comments   map[uuid.UUID]*entity.Comment
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[uuid.UUID]*entity.User{},
		categories: map[uuid.UUID]*entity.Category{},
		genres:     map[uuid.UUID]*entity.Genre{},
		titles:     map[uuid.UUID]*entity.Title{},
		links:      map[uuid.UUID][]uuid.UUID{},
		reviews:    map[uuid.UUID]*entity.Review{},
		comments:   map[uuid.UUID]*entity.Comment{},
	}
}

func (m *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:     &fakeUserRepo{m},
		Category: &fakeCategoryRepo{m},
		Genre:    &fakeGenreRepo{m},
		Title:    &fakeTitleRepo{m},
		Review:   &fakeReviewRepo{m},
		Comment:  &fakeCommentRepo{m},
	}
}

func dup(constraint string) error {
	return &repository.DuplicateError{Constraint: constraint}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// ==================== USERS ====================

type fakeUserRepo struct{ m *memStore }

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == user.Username {
			return dup(repository.ConstraintUsername)
		}
		if strings.EqualFold(u.Email, user.Email) {
			return dup(repository.ConstraintEmail)
		}
	}
	c := *user
	r.m.users[user.ID] = &c
	return nil
}

func (r *fakeUserRepo) find(match func(*entity.User) bool) *entity.User {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if match(u) {
			c := *u
			return &c
		}
	}
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id }), nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Username == username }), nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (r *fakeUserRepo) matching(search string) []*entity.User {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*entity.User{}
	for _, u := range r.m.users {
		if search == "" || strings.Contains(strings.ToLower(u.Username), strings.ToLower(search)) {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (r *fakeUserRepo) FindAll(_ context.Context, params repository.ListParams) ([]*entity.User, error) {
	return page(r.matching(params.Search), params.Limit, params.Offset), nil
}

func (r *fakeUserRepo) CountAll(_ context.Context, search string) (int64, error) {
	return int64(len(r.matching(search))), nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *entity.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, u := range r.m.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username {
			return dup(repository.ConstraintUsername)
		}
		if strings.EqualFold(u.Email, user.Email) {
			return dup(repository.ConstraintEmail)
		}
	}
	c := *user
	r.m.users[user.ID] = &c
	return nil
}

func (r *fakeUserRepo) MarkLogin(_ context.Context, id uuid.UUID, prev *time.Time, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok || !sameInstant(u.LastLogin, prev) {
		return repository.ErrNotFound
	}
	u.EmailVerified = true
	u.LastLogin = &at
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.users, id)
	return nil
}

// ==================== CATEGORIES / GENRES ====================

type fakeCategoryRepo struct{ m *memStore }

func (r *fakeCategoryRepo) Create(_ context.Context, category *entity.Category) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.categories {
		if c.Slug == category.Slug {
			return dup(repository.ConstraintCategorySlug)
		}
	}
	c := *category
	r.m.categories[category.ID] = &c
	return nil
}

func (r *fakeCategoryRepo) FindBySlug(_ context.Context, slug string) (*entity.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.categories {
		if c.Slug == slug {
			cc := *c
			return &cc, nil
		}
	}
	return nil, nil
}

func (r *fakeCategoryRepo) matching(search string) []*entity.Category {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*entity.Category{}
	for _, c := range r.m.categories {
		if search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *fakeCategoryRepo) FindAll(_ context.Context, params repository.ListParams) ([]*entity.Category, error) {
	return page(r.matching(params.Search), params.Limit, params.Offset), nil
}

func (r *fakeCategoryRepo) CountAll(_ context.Context, search string) (int64, error) {
	return int64(len(r.matching(search))), nil
}

// DeleteBySlug mirrors ON DELETE SET NULL on titles.category_id.
func (r *fakeCategoryRepo) DeleteBySlug(_ context.Context, slug string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, c := range r.m.categories {
		if c.Slug != slug {
			continue
		}
		delete(r.m.categories, id)
		for _, t := range r.m.titles {
			if t.CategoryID != nil && *t.CategoryID == id {
				t.CategoryID = nil
			}
		}
		return nil
	}
	return repository.ErrNotFound
}

type fakeGenreRepo struct{ m *memStore }

func (r *fakeGenreRepo) Create(_ context.Context, genre *entity.Genre) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, g := range r.m.genres {
		if g.Slug == genre.Slug {
			return dup(repository.ConstraintGenreSlug)
		}
	}
	g := *genre
	r.m.genres[genre.ID] = &g
	return nil
}

func (r *fakeGenreRepo) FindBySlug(_ context.Context, slug string) (*entity.Genre, error) {
	genres, _ := r.FindBySlugs(context.Background(), []string{slug})
	if len(genres) == 0 {
		return nil, nil
	}
	return genres[0], nil
}

func (r *fakeGenreRepo) FindBySlugs(_ context.Context, slugs []string) ([]*entity.Genre, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*entity.Genre{}
	for _, g := range r.m.genres {
		for _, s := range slugs {
			if g.Slug == s {
				gg := *g
				out = append(out, &gg)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeGenreRepo) matching(search string) []*entity.Genre {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*entity.Genre{}
	for _, g := range r.m.genres {
		if search == "" || strings.Contains(strings.ToLower(g.Name), strings.ToLower(search)) {
			gg := *g
			out = append(out, &gg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *fakeGenreRepo) FindAll(_ context.Context, params repository.ListParams) ([]*entity.Genre, error) {
	return page(r.matching(params.Search), params.Limit, params.Offset), nil
}

func (r *fakeGenreRepo) CountAll(_ context.Context, search string) (int64, error) {
	return int64(len(r.matching(search))), nil
}

func (r *fakeGenreRepo) DeleteBySlug(_ context.Context, slug string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, g := range r.m.genres {
		if g.Slug != slug {
			continue
		}
		delete(r.m.genres, id)
		for tid, gids := range r.m.links {
			kept := gids[:0]
			for _, gid := range gids {
				if gid != id {
					kept = append(kept, gid)
				}
			}
			r.m.links[tid] = kept
		}
		return nil
	}
	return repository.ErrNotFound
}

// ==================== TITLES ====================

type fakeTitleRepo struct{ m *memStore }

func (r *fakeTitleRepo) checkUnique(title *entity.Title) error {
	for id, t := range r.m.titles {
		if id == title.ID || t.Name != title.Name {
			continue
		}
		if t.CategoryID != nil && title.CategoryID != nil && *t.CategoryID == *title.CategoryID {
			return dup(repository.ConstraintTitleCategory)
		}
	}
	return nil
}

func (r *fakeTitleRepo) Create(_ context.Context, title *entity.Title, genreIDs []uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.checkUnique(title); err != nil {
		return err
	}
	t := *title
	r.m.titles[title.ID] = &t
	r.m.links[title.ID] = append([]uuid.UUID{}, genreIDs...)
	return nil
}

// hydrate fills the read-side fields the SQL query joins in. Caller holds the lock.
func (r *fakeTitleRepo) hydrate(t *entity.Title) *entity.Title {
	c := *t
	c.Category = nil
	if c.CategoryID != nil {
		if cat, ok := r.m.categories[*c.CategoryID]; ok {
			cc := *cat
			c.Category = &cc
		}
	}
	c.Genres = []entity.Genre{}
	for _, gid := range r.m.links[c.ID] {
		if g, ok := r.m.genres[gid]; ok {
			c.Genres = append(c.Genres, *g)
		}
	}
	sort.Slice(c.Genres, func(i, j int) bool { return c.Genres[i].Name < c.Genres[j].Name })
	c.ScoreSum, c.ReviewCount = 0, 0
	for _, rv := range r.m.reviews {
		if rv.TitleID == c.ID {
			c.ScoreSum += int64(rv.Score)
			c.ReviewCount++
		}
	}
	return &c
}

func (r *fakeTitleRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Title, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.titles[id]
	if !ok {
		return nil, nil
	}
	return r.hydrate(t), nil
}

func (r *fakeTitleRepo) matching(filter repository.TitleFilter) []*entity.Title {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*entity.Title{}
	for _, t := range r.m.titles {
		h := r.hydrate(t)
		if filter.Year != nil && h.Year != *filter.Year {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(h.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Category != "" && (h.Category == nil || h.Category.Slug != filter.Category) {
			continue
		}
		if filter.Genre != "" {
			found := false
			for _, g := range h.Genres {
				found = found || g.Slug == filter.Genre
			}
			if !found {
				continue
			}
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *fakeTitleRepo) FindAll(_ context.Context, filter repository.TitleFilter, limit, offset int) ([]*entity.Title, error) {
	return page(r.matching(filter), limit, offset), nil
}

func (r *fakeTitleRepo) CountAll(_ context.Context, filter repository.TitleFilter) (int64, error) {
	return int64(len(r.matching(filter))), nil
}

func (r *fakeTitleRepo) Update(_ context.Context, title *entity.Title, genreIDs []uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.titles[title.ID]; !ok {
		return repository.ErrNotFound
	}
	if err := r.checkUnique(title); err != nil {
		return err
	}
	t := *title
	r.m.titles[title.ID] = &t
	if genreIDs != nil {
		r.m.links[title.ID] = append([]uuid.UUID{}, genreIDs...)
	}
	return nil
}

func (r *fakeTitleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.titles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.titles, id)
	delete(r.m.links, id)
	for rid, rv := range r.m.reviews {
		if rv.TitleID == id {
			delete(r.m.reviews, rid)
		}
	}
	return nil
}

// ==================== REVIEWS / COMMENTS ====================

type fakeReviewRepo struct{ m *memStore }

func (r *fakeReviewRepo) Create(_ context.Context, review *entity.Review) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, rv := range r.m.reviews {
		if rv.AuthorID == review.AuthorID && rv.TitleID == review.TitleID {
			return dup(repository.ConstraintReviewAuthor)
		}
	}
	c := *review
	r.m.reviews[review.ID] = &c
	return nil
}

func (r *fakeReviewRepo) hydrate(rv *entity.Review) *entity.Review {
	c := *rv
	if u, ok := r.m.users[c.AuthorID]; ok {
		c.AuthorUsername = u.Username
	}
	if t, ok := r.m.titles[c.TitleID]; ok {
		c.TitleName = t.Name
	}
	return &c
}

func (r *fakeReviewRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Review, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rv, ok := r.m.reviews[id]
	if !ok {
		return nil, nil
	}
	return r.hydrate(rv), nil
}

func (r *fakeReviewRepo) byTitle(titleID uuid.UUID) []*entity.Review {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*entity.Review{}
	for _, rv := range r.m.reviews {
		if rv.TitleID == titleID {
			out = append(out, r.hydrate(rv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PubDate.After(out[j].PubDate) })
	return out
}

func (r *fakeReviewRepo) FindByTitleID(_ context.Context, titleID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	return page(r.byTitle(titleID), limit, offset), nil
}

func (r *fakeReviewRepo) CountByTitleID(_ context.Context, titleID uuid.UUID) (int64, error) {
	return int64(len(r.byTitle(titleID))), nil
}

func (r *fakeReviewRepo) Update(_ context.Context, review *entity.Review) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rv, ok := r.m.reviews[review.ID]
	if !ok {
		return repository.ErrNotFound
	}
	rv.Text, rv.Score, rv.UpdatedAt = review.Text, review.Score, review.UpdatedAt
	return nil
}

func (r *fakeReviewRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.reviews, id)
	for cid, c := range r.m.comments {
		if c.ReviewID == id {
			delete(r.m.comments, cid)
		}
	}
	return nil
}

type fakeCommentRepo struct{ m *memStore }

func (r *fakeCommentRepo) Create(_ context.Context, comment *entity.Comment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *comment
	r.m.comments[comment.ID] = &c
	return nil
}

func (r *fakeCommentRepo) hydrate(c *entity.Comment) *entity.Comment {
	cc := *c
	if u, ok := r.m.users[cc.AuthorID]; ok {
		cc.AuthorUsername = u.Username
	}
	return &cc
}

func (r *fakeCommentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Comment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.comments[id]
	if !ok {
		return nil, nil
	}
	return r.hydrate(c), nil
}

func (r *fakeCommentRepo) byReview(reviewID uuid.UUID) []*entity.Comment {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*entity.Comment{}
	for _, c := range r.m.comments {
		if c.ReviewID == reviewID {
			out = append(out, r.hydrate(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PubDate.After(out[j].PubDate) })
	return out
}

func (r *fakeCommentRepo) FindByReviewID(_ context.Context, reviewID uuid.UUID, limit, offset int) ([]*entity.Comment, error) {
	return page(r.byReview(reviewID), limit, offset), nil
}

func (r *fakeCommentRepo) CountByReviewID(_ context.Context, reviewID uuid.UUID) (int64, error) {
	return int64(len(r.byReview(reviewID))), nil
}

func (r *fakeCommentRepo) Update(_ context.Context, comment *entity.Comment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.comments[comment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Text, c.UpdatedAt = comment.Text, comment.UpdatedAt
	return nil
}

func (r *fakeCommentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.comments, id)
	return nil
}

// ==================== MAILER / CLOCK ====================

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) last() mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return mailer.Message{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

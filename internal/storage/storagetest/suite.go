// Package storagetest содержит общий набор тестов для реализаций storage.Storage.
package storagetest

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/devshowcase-graphql/internal/domain"
	"github.com/UkralStul/devshowcase-graphql/internal/storage"
)

// Run прогоняет контракт Storage на хранилище, которое возвращает newStore.
// newStore вызывается для каждого подтеста и должен отдавать пустое хранилище.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Run("CreateAndFindByID", func(t *testing.T) { testCreateAndFindByID(t, newStore(t)) })
	t.Run("FindByIDUnknown", func(t *testing.T) { testFindByIDUnknown(t, newStore(t)) })
	t.Run("FindSortAndLimit", func(t *testing.T) { testFindSortAndLimit(t, newStore(t)) })
	t.Run("FindByFilter", func(t *testing.T) { testFindByFilter(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("DeleteManyAndCount", func(t *testing.T) { testDeleteManyAndCount(t, newStore(t)) })
	t.Run("UserByExternalID", func(t *testing.T) { testUserByExternalID(t, newStore(t)) })
	t.Run("ExternalIDIsUnique", func(t *testing.T) { testExternalIDIsUnique(t, newStore(t)) })
	t.Run("UnsupportedFilter", func(t *testing.T) { testUnsupportedFilter(t, newStore(t)) })
	t.Run("DeleteManyRequiresFilter", func(t *testing.T) { testDeleteManyRequiresFilter(t, newStore(t)) })
	t.Run("ConcurrentUpdate", func(t *testing.T) { testConcurrentUpdate(t, newStore(t)) })
}

func newUser(t *testing.T, s storage.Storage, externalID string) *domain.User {
	t.Helper()
	user, err := s.Users().Create(context.Background(), &domain.User{
		Name:             "user " + externalID,
		ExternalID:       externalID,
		ExternalUsername: "login" + externalID,
	})
	require.NoError(t, err)
	return user
}

func newPost(t *testing.T, s storage.Storage, authorID, title string) *domain.Post {
	t.Helper()
	post, err := s.Posts().Create(context.Background(), &domain.Post{
		Title:         title,
		Description:   "description",
		RepoURL:       "https://example.com/repo",
		WebsiteURL:    "https://example.com",
		CoverPhotoURL: "https://example.com/cover.png",
		AuthorID:      authorID,
	})
	require.NoError(t, err)
	return post
}

func testCreateAndFindByID(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	user := newUser(t, s, "1")
	post := newPost(t, s, user.ID, "Test Post")

	assert.Len(t, post.ID, 24)
	assert.False(t, post.CreatedAt.IsZero())

	retrieved, err := s.Posts().FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, retrieved.Title)
	assert.Equal(t, user.ID, retrieved.AuthorID)
}

func testFindByIDUnknown(t *testing.T, s storage.Storage) {
	_, err := s.Posts().FindByID(context.Background(), "000000000000000000000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.Likes().FindByID(context.Background(), "non-existent-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testFindSortAndLimit(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	user := newUser(t, s, "1")

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, newPost(t, s, user.ID, "post "+strconv.Itoa(i)).ID)
	}

	desc, err := s.Posts().Find(ctx, nil, storage.FindOptions{Sort: storage.SortIDDesc, Limit: 3})
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, ids[4], desc[0].ID)
	assert.Equal(t, ids[3], desc[1].ID)
	assert.Equal(t, ids[2], desc[2].ID)

	all, err := s.Posts().Find(ctx, nil, storage.FindOptions{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	got := make([]string, len(all))
	for i, p := range all {
		got[i] = p.ID
	}
	assert.True(t, sort.StringsAreSorted(got), "ids must be in creation order")
}

func testFindByFilter(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := newUser(t, s, "1")
	bob := newUser(t, s, "2")
	post := newPost(t, s, alice.ID, "alice's post")
	other := newPost(t, s, bob.ID, "bob's post")

	for _, author := range []string{alice.ID, bob.ID, bob.ID} {
		_, err := s.Comments().Create(ctx, &domain.Comment{Content: "hi", PostID: post.ID, AuthorID: author})
		require.NoError(t, err)
	}
	_, err := s.Comments().Create(ctx, &domain.Comment{Content: "elsewhere", PostID: other.ID, AuthorID: bob.ID})
	require.NoError(t, err)

	byPost, err := s.Comments().Find(ctx, storage.Filter{domain.RefPost: post.ID}, storage.FindOptions{})
	require.NoError(t, err)
	assert.Len(t, byPost, 3)

	byBobOnPost, err := s.Comments().Find(ctx, storage.Filter{domain.RefPost: post.ID, domain.RefAuthor: bob.ID}, storage.FindOptions{})
	require.NoError(t, err)
	assert.Len(t, byBobOnPost, 2)

	alicePosts, err := s.Posts().Find(ctx, storage.Filter{domain.RefAuthor: alice.ID}, storage.FindOptions{})
	require.NoError(t, err)
	require.Len(t, alicePosts, 1)
	assert.Equal(t, post.ID, alicePosts[0].ID)
}

func testUpdate(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	user := newUser(t, s, "1")
	post := newPost(t, s, user.ID, "A")

	updated, err := s.Posts().Update(ctx, post.ID, func(p *domain.Post) {
		p.Title = "C"
		p.ID = "must-not-change"
	})
	require.NoError(t, err)
	assert.Equal(t, post.ID, updated.ID)
	assert.Equal(t, "C", updated.Title)
	assert.Equal(t, "description", updated.Description)

	stored, err := s.Posts().FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "C", stored.Title)

	_, err = s.Posts().Update(ctx, "000000000000000000000000", func(*domain.Post) {})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDelete(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	user := newUser(t, s, "1")
	post := newPost(t, s, user.ID, "to delete")

	deleted, err := s.Posts().Delete(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, deleted.ID)
	assert.Equal(t, "to delete", deleted.Title)

	_, err = s.Posts().FindByID(ctx, post.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.Posts().Delete(ctx, post.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDeleteManyAndCount(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	user := newUser(t, s, "1")
	post := newPost(t, s, user.ID, "liked")
	other := newPost(t, s, user.ID, "other")

	for i := 0; i < 3; i++ {
		_, err := s.Likes().Create(ctx, &domain.Like{PostID: post.ID, AuthorID: user.ID})
		require.NoError(t, err)
	}
	_, err := s.Likes().Create(ctx, &domain.Like{PostID: other.ID, AuthorID: user.ID})
	require.NoError(t, err)

	n, err := s.Likes().Count(ctx, storage.Filter{domain.RefPost: post.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	removed, err := s.Likes().DeleteMany(ctx, storage.Filter{domain.RefPost: post.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	n, err = s.Likes().Count(ctx, storage.Filter{domain.RefPost: post.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Likes().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testUserByExternalID(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	newUser(t, s, "100")
	want := newUser(t, s, "200")

	found, err := s.Users().Find(ctx, storage.Filter{domain.RefExternalID: "200"}, storage.FindOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, want.ID, found[0].ID)
	assert.Equal(t, "login200", found[0].ExternalUsername)
}

func testExternalIDIsUnique(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	first := newUser(t, s, "42")

	_, err := s.Users().Create(ctx, &domain.User{Name: "second", ExternalID: "42"})
	assert.Error(t, err)

	second := newUser(t, s, "43")
	_, err = s.Users().Update(ctx, second.ID, func(u *domain.User) { u.ExternalID = "42" })
	assert.Error(t, err)

	// Обновление самой записи с тем же externalID не конфликтует
	_, err = s.Users().Update(ctx, first.ID, func(u *domain.User) { u.Name = "renamed" })
	assert.NoError(t, err)

	n, err := s.Users().Count(ctx, storage.Filter{domain.RefExternalID: "42"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testUnsupportedFilter(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	user := newUser(t, s, "1")
	newPost(t, s, user.ID, "post")

	// У постов нет externalID, даже пустое значение не должно выбирать все записи
	_, err := s.Posts().Find(ctx, storage.Filter{domain.RefExternalID: ""}, storage.FindOptions{})
	assert.ErrorIs(t, err, storage.ErrUnsupportedFilter)

	_, err = s.Users().Count(ctx, storage.Filter{domain.RefPost: "x"})
	assert.ErrorIs(t, err, storage.ErrUnsupportedFilter)

	_, err = s.Posts().DeleteMany(ctx, storage.Filter{domain.RefPost: ""})
	assert.ErrorIs(t, err, storage.ErrUnsupportedFilter)

	n, err := s.Posts().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testDeleteManyRequiresFilter(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	user := newUser(t, s, "1")
	post := newPost(t, s, user.ID, "post")
	_, err := s.Comments().Create(ctx, &domain.Comment{Content: "c", PostID: post.ID, AuthorID: user.ID})
	require.NoError(t, err)

	_, err = s.Comments().DeleteMany(ctx, nil)
	assert.Error(t, err)

	n, err := s.Comments().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testConcurrentUpdate(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	user := newUser(t, s, "1")
	post := newPost(t, s, user.ID, "")

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Posts().Update(ctx, post.ID, func(p *domain.Post) { p.Title += "x" })
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Ни одно изменение не должно потеряться
	stored, err := s.Posts().FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", writers), stored.Title)
}

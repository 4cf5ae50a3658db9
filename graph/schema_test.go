package graph

import (
	"context"
	"strconv"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/devshowcase-graphql/internal/apperror"
	"github.com/UkralStul/devshowcase-graphql/internal/auth"
	"github.com/UkralStul/devshowcase-graphql/internal/domain"
	"github.com/UkralStul/devshowcase-graphql/internal/observability"
	"github.com/UkralStul/devshowcase-graphql/internal/storage"
	"github.com/UkralStul/devshowcase-graphql/internal/storage/inmemory"
)

const absentID = "000000000000000000000000"

type fixture struct {
	resolver *Resolver
	store    *inmemory.Store
	alice    *domain.User
	bob      *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := inmemory.New()
	ctx := context.Background()

	alice, err := store.Users().Create(ctx, &domain.User{Name: "Alice", AvatarURL: "https://example.com/a.png", ExternalID: "1", ExternalUsername: "alice"})
	require.NoError(t, err)
	bob, err := store.Users().Create(ctx, &domain.User{Name: "Bob", ExternalID: "2", ExternalUsername: "bob"})
	require.NoError(t, err)

	return &fixture{
		resolver: &Resolver{
			Storage: store,
			Logger:  observability.NewNop(),
			Metrics: observability.NewMetrics("test"),
		},
		store: store,
		alice: alice,
		bob:   bob,
	}
}

func (f *fixture) as(user *domain.User) context.Context {
	return auth.WithUser(context.Background(), user)
}

func (f *fixture) exec(t *testing.T, ctx context.Context, query string, vars map[string]interface{}) *graphql.Result {
	t.Helper()
	return f.resolver.Execute(ctx, Request{Query: query, Variables: vars})
}

// data выполняет запрос и требует отсутствия ошибок.
func (f *fixture) data(t *testing.T, ctx context.Context, query string, vars map[string]interface{}) map[string]interface{} {
	t.Helper()
	res := f.exec(t, ctx, query, vars)
	require.False(t, res.HasErrors(), "unexpected errors: %v", res.Errors)
	data, ok := res.Data.(map[string]interface{})
	require.True(t, ok)
	return data
}

func (f *fixture) createPost(t *testing.T, author *domain.User, title string) string {
	t.Helper()
	data := f.data(t, f.as(author), `
		mutation ($title: String!) {
			createPost(title: $title, description: "B", repoURL: "https://example.com/r", websiteURL: "https://example.com", coverPhotoURL: "https://example.com/c.png") { id }
		}`, map[string]interface{}{"title": title})
	return data["createPost"].(map[string]interface{})["id"].(string)
}

func errorCode(t *testing.T, res *graphql.Result) string {
	t.Helper()
	require.True(t, res.HasErrors())
	code, _ := res.Errors[0].Extensions["code"].(string)
	return code
}

func TestSchema_BuiltOnce(t *testing.T) {
	first, err := Schema()
	require.NoError(t, err)
	second, err := Schema()
	require.NoError(t, err)

	assert.Same(t, first.QueryType(), second.QueryType())
	assert.NotNil(t, first.Type("Like"))
}

func TestQuery_PostsCappedAtTwenty(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 25; i++ {
		f.createPost(t, f.alice, "post "+strconv.Itoa(i))
	}

	data := f.data(t, context.Background(), `{ posts { id } }`, nil)
	assert.Len(t, data["posts"], 20)
}

func TestQuery_PostsNewestFirst(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, f.createPost(t, f.alice, "post "+strconv.Itoa(i)))
	}

	data := f.data(t, context.Background(), `{ posts { id title } }`, nil)
	posts := data["posts"].([]interface{})
	require.Len(t, posts, 5)

	for i := 1; i < len(posts); i++ {
		prev := posts[i-1].(map[string]interface{})["id"].(string)
		cur := posts[i].(map[string]interface{})["id"].(string)
		assert.Greater(t, prev, cur)
	}
	assert.Equal(t, ids[4], posts[0].(map[string]interface{})["id"])
	assert.Equal(t, "post 4", posts[0].(map[string]interface{})["title"])
}

func TestQuery_PostListShape(t *testing.T) {
	f := newFixture(t)
	postID := f.createPost(t, f.alice, "Showcase")
	_, err := f.store.Likes().Create(context.Background(), &domain.Like{PostID: postID, AuthorID: f.bob.ID})
	require.NoError(t, err)

	data := f.data(t, context.Background(), `
		query {
			posts {
				id
				title
				coverPhotoURL
				numLikes
				author { id name avatarURL }
			}
		}`, nil)

	posts := data["posts"].([]interface{})
	require.Len(t, posts, 1)
	post := posts[0].(map[string]interface{})
	assert.Equal(t, postID, post["id"])
	assert.Equal(t, "https://example.com/c.png", post["coverPhotoURL"])
	assert.EqualValues(t, 1, post["numLikes"])
	assert.Equal(t, map[string]interface{}{
		"id":        f.alice.ID,
		"name":      "Alice",
		"avatarURL": "https://example.com/a.png",
	}, post["author"])
}

func TestQuery_UnknownIDReturnsNull(t *testing.T) {
	f := newFixture(t)

	res := f.exec(t, context.Background(), `
		query ($id: ID!) {
			post(id: $id) { id }
			comment(id: $id) { id }
			like(id: $id) { id }
		}`, map[string]interface{}{"id": absentID})

	require.False(t, res.HasErrors(), "unexpected errors: %v", res.Errors)
	data := res.Data.(map[string]interface{})
	assert.Nil(t, data["post"])
	assert.Nil(t, data["comment"])
	assert.Nil(t, data["like"])
}

func TestQuery_User(t *testing.T) {
	f := newFixture(t)

	data := f.data(t, context.Background(), `{ user { id } }`, nil)
	assert.Nil(t, data["user"])

	data = f.data(t, f.as(f.alice), `{ user { id name externalUsername } }`, nil)
	assert.Equal(t, map[string]interface{}{
		"id":               f.alice.ID,
		"name":             "Alice",
		"externalUsername": "alice",
	}, data["user"])
}

func TestQuery_NestedRelations(t *testing.T) {
	f := newFixture(t)
	postID := f.createPost(t, f.alice, "Nested")

	data := f.data(t, f.as(f.bob), `
		mutation ($post: ID!) {
			createComment(content: "nice", post: $post) { id }
			createLike(post: $post) { id }
		}`, map[string]interface{}{"post": postID})
	commentID := data["createComment"].(map[string]interface{})["id"].(string)
	likeID := data["createLike"].(map[string]interface{})["id"].(string)

	data = f.data(t, context.Background(), `
		query ($post: ID!, $comment: ID!, $like: ID!) {
			post(id: $post) { comments { content author { name } } }
			comment(id: $comment) { post { title } author { name } }
			like(id: $like) { post { id } author { id } }
		}`, map[string]interface{}{"post": postID, "comment": commentID, "like": likeID})

	comments := data["post"].(map[string]interface{})["comments"].([]interface{})
	require.Len(t, comments, 1)
	assert.Equal(t, "nice", comments[0].(map[string]interface{})["content"])
	assert.Equal(t, "Bob", comments[0].(map[string]interface{})["author"].(map[string]interface{})["name"])

	comment := data["comment"].(map[string]interface{})
	assert.Equal(t, "Nested", comment["post"].(map[string]interface{})["title"])
	assert.Equal(t, "Bob", comment["author"].(map[string]interface{})["name"])

	like := data["like"].(map[string]interface{})
	assert.Equal(t, postID, like["post"].(map[string]interface{})["id"])
	assert.Equal(t, f.bob.ID, like["author"].(map[string]interface{})["id"])

	data = f.data(t, f.as(f.bob), `{ user { posts { id } comments { content } } }`, nil)
	user := data["user"].(map[string]interface{})
	assert.Empty(t, user["posts"])
	assert.Len(t, user["comments"], 1)
}

func TestMutation_CreateRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	postID := f.createPost(t, f.alice, "target")

	mutations := map[string]string{
		"createPost":    `mutation { createPost(title: "A", description: "B", repoURL: "r", websiteURL: "w", coverPhotoURL: "c") { id } }`,
		"createComment": `mutation ($post: ID!) { createComment(content: "hi", post: $post) { id } }`,
		"createLike":    `mutation ($post: ID!) { createLike(post: $post) { id } }`,
	}

	for name, query := range mutations {
		t.Run(name, func(t *testing.T) {
			res := f.exec(t, context.Background(), query, map[string]interface{}{"post": postID})
			assert.Equal(t, apperror.CodeAuthRequired, errorCode(t, res))
			assert.Nil(t, res.Data.(map[string]interface{})[name])
		})
	}

	ctx := context.Background()
	posts, err := f.store.Posts().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), posts)
	comments, err := f.store.Comments().Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, comments)
	likes, err := f.store.Likes().Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, likes)
}

func TestMutation_AuthorIsRequester(t *testing.T) {
	f := newFixture(t)
	postID := f.createPost(t, f.alice, "stamped")

	data := f.data(t, context.Background(), `query ($id: ID!) { post(id: $id) { author { id } } }`, map[string]interface{}{"id": postID})
	assert.Equal(t, f.alice.ID, data["post"].(map[string]interface{})["author"].(map[string]interface{})["id"])

	data = f.data(t, f.as(f.bob), `
		mutation ($post: ID!) {
			createComment(content: "by bob", post: $post) { author { id } }
			createLike(post: $post) { author { id } }
		}`, map[string]interface{}{"post": postID})
	assert.Equal(t, f.bob.ID, data["createComment"].(map[string]interface{})["author"].(map[string]interface{})["id"])
	assert.Equal(t, f.bob.ID, data["createLike"].(map[string]interface{})["author"].(map[string]interface{})["id"])

	// Автора нельзя передать аргументом
	res := f.exec(t, f.as(f.bob), `mutation ($post: ID!, $author: ID!) { createLike(post: $post, author: $author) { id } }`,
		map[string]interface{}{"post": postID, "author": f.alice.ID})
	assert.True(t, res.HasErrors())
}

func TestMutation_CreatePostValidation(t *testing.T) {
	f := newFixture(t)

	// Не передан обязательный аргумент: ошибка валидации документа
	res := f.exec(t, f.as(f.alice), `mutation { createPost(title: "A", description: "B", repoURL: "r", websiteURL: "w") { id } }`, nil)
	assert.True(t, res.HasErrors())
	assert.Nil(t, res.Data)

	res = f.exec(t, f.as(f.alice), `mutation { createPost(title: "  ", description: "B", repoURL: "r", websiteURL: "w", coverPhotoURL: "c") { id } }`, nil)
	assert.Equal(t, apperror.CodeValidation, errorCode(t, res))
	assert.Equal(t, "title", res.Errors[0].Extensions["field"])
}

func TestMutation_UpdatePostIsPartial(t *testing.T) {
	f := newFixture(t)
	postID := f.createPost(t, f.alice, "A")

	data := f.data(t, f.as(f.bob), `
		mutation ($id: ID!) {
			updatePost(id: $id, title: "C") { id title description repoURL websiteURL coverPhotoURL author { id } }
		}`, map[string]interface{}{"id": postID})

	assert.Equal(t, map[string]interface{}{
		"id":            postID,
		"title":         "C",
		"description":   "B",
		"repoURL":       "https://example.com/r",
		"websiteURL":    "https://example.com",
		"coverPhotoURL": "https://example.com/c.png",
		"author":        map[string]interface{}{"id": f.alice.ID},
	}, data["updatePost"])
}

func TestMutation_UnknownIDIsNotFound(t *testing.T) {
	f := newFixture(t)

	mutations := map[string]string{
		"updatePost":    `mutation ($id: ID!) { updatePost(id: $id, title: "x") { id } }`,
		"deletePost":    `mutation ($id: ID!) { deletePost(id: $id) { id } }`,
		"updateComment": `mutation ($id: ID!) { updateComment(id: $id, content: "x") { id } }`,
		"deleteComment": `mutation ($id: ID!) { deleteComment(id: $id) { id } }`,
		"deleteLike":    `mutation ($id: ID!) { deleteLike(id: $id) { id } }`,
		"createComment": `mutation ($id: ID!) { createComment(content: "x", post: $id) { id } }`,
		"createLike":    `mutation ($id: ID!) { createLike(post: $id) { id } }`,
	}

	for name, query := range mutations {
		t.Run(name, func(t *testing.T) {
			res := f.exec(t, f.as(f.alice), query, map[string]interface{}{"id": absentID})
			assert.Equal(t, apperror.CodeNotFound, errorCode(t, res))
			assert.Nil(t, res.Data.(map[string]interface{})[name])
		})
	}
}

func TestMutation_DeletePostCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	postID := f.createPost(t, f.alice, "doomed")
	keptID := f.createPost(t, f.alice, "kept")

	for _, target := range []string{postID, postID, keptID} {
		f.data(t, f.as(f.bob), `
			mutation ($post: ID!) {
				createComment(content: "c", post: $post) { id }
				createLike(post: $post) { id }
			}`, map[string]interface{}{"post": target})
	}

	data := f.data(t, f.as(f.bob), `mutation ($id: ID!) { deletePost(id: $id) { id title } }`, map[string]interface{}{"id": postID})
	assert.Equal(t, map[string]interface{}{"id": postID, "title": "doomed"}, data["deletePost"])

	for _, count := range []func() (int64, error){
		func() (int64, error) { return f.store.Comments().Count(ctx, storage.Filter{domain.RefPost: postID}) },
		func() (int64, error) { return f.store.Likes().Count(ctx, storage.Filter{domain.RefPost: postID}) },
	} {
		n, err := count()
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	data = f.data(t, ctx, `query ($id: ID!) { post(id: $id) { id } }`, map[string]interface{}{"id": postID})
	assert.Nil(t, data["post"])

	data = f.data(t, ctx, `query ($id: ID!) { post(id: $id) { numLikes comments { id } } }`, map[string]interface{}{"id": keptID})
	kept := data["post"].(map[string]interface{})
	assert.EqualValues(t, 1, kept["numLikes"])
	assert.Len(t, kept["comments"], 1)
}

func TestPost_NumLikes(t *testing.T) {
	for _, likes := range []int{0, 1, 7} {
		t.Run(strconv.Itoa(likes), func(t *testing.T) {
			f := newFixture(t)
			postID := f.createPost(t, f.alice, "liked")
			otherID := f.createPost(t, f.alice, "other")

			// Лайки к разным постам вперемешку, в том числе повторные от одного пользователя
			for i := 0; i < likes; i++ {
				f.data(t, f.as(f.bob), `mutation ($post: ID!) { createLike(post: $post) { id } }`, map[string]interface{}{"post": postID})
				f.data(t, f.as(f.alice), `mutation ($post: ID!) { createLike(post: $post) { id } }`, map[string]interface{}{"post": otherID})
			}

			data := f.data(t, context.Background(), `query ($id: ID!) { post(id: $id) { numLikes } }`, map[string]interface{}{"id": postID})
			assert.EqualValues(t, likes, data["post"].(map[string]interface{})["numLikes"])
		})
	}
}

func TestMutation_CommentLifecycle(t *testing.T) {
	f := newFixture(t)
	postID := f.createPost(t, f.alice, "commented")

	data := f.data(t, f.as(f.bob), `mutation ($post: ID!) { createComment(content: "first", post: $post) { id content } }`,
		map[string]interface{}{"post": postID})
	commentID := data["createComment"].(map[string]interface{})["id"].(string)

	data = f.data(t, f.as(f.alice), `mutation ($id: ID!) { updateComment(id: $id, content: "edited") { content author { id } } }`,
		map[string]interface{}{"id": commentID})
	assert.Equal(t, "edited", data["updateComment"].(map[string]interface{})["content"])
	assert.Equal(t, f.bob.ID, data["updateComment"].(map[string]interface{})["author"].(map[string]interface{})["id"])

	res := f.exec(t, f.as(f.alice), `mutation ($id: ID!) { updateComment(id: $id, content: "") { id } }`,
		map[string]interface{}{"id": commentID})
	assert.Equal(t, apperror.CodeValidation, errorCode(t, res))

	data = f.data(t, context.Background(), `mutation ($id: ID!) { deleteComment(id: $id) { id content } }`,
		map[string]interface{}{"id": commentID})
	assert.Equal(t, map[string]interface{}{"id": commentID, "content": "edited"}, data["deleteComment"])

	data = f.data(t, context.Background(), `query ($id: ID!) { comment(id: $id) { id } }`, map[string]interface{}{"id": commentID})
	assert.Nil(t, data["comment"])
}

func TestMutation_LikesAreNotDeduplicated(t *testing.T) {
	f := newFixture(t)
	postID := f.createPost(t, f.alice, "popular")

	var likeIDs []string
	for i := 0; i < 2; i++ {
		data := f.data(t, f.as(f.bob), `mutation ($post: ID!) { createLike(post: $post) { id } }`, map[string]interface{}{"post": postID})
		likeIDs = append(likeIDs, data["createLike"].(map[string]interface{})["id"].(string))
	}
	assert.NotEqual(t, likeIDs[0], likeIDs[1])

	data := f.data(t, context.Background(), `mutation ($id: ID!) { deleteLike(id: $id) { id post { id } } }`, map[string]interface{}{"id": likeIDs[0]})
	assert.Equal(t, likeIDs[0], data["deleteLike"].(map[string]interface{})["id"])

	data = f.data(t, context.Background(), `query ($id: ID!) { post(id: $id) { numLikes } }`, map[string]interface{}{"id": postID})
	assert.EqualValues(t, 1, data["post"].(map[string]interface{})["numLikes"])
}

func TestOperationType(t *testing.T) {
	assert.Equal(t, "query", operationType(`{ posts { id } }`, ""))
	assert.Equal(t, "mutation", operationType(`query A { posts { id } } mutation B { deleteLike(id: "1") { id } }`, "B"))
	assert.Equal(t, "invalid", operationType(`{ posts `, ""))
}

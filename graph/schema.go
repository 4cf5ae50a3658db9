package graph

import (
	"sync"

	"github.com/graphql-go/graphql"

	"github.com/UkralStul/devshowcase-graphql/graph/model"
	"github.com/UkralStul/devshowcase-graphql/internal/domain"
)

// Schema возвращает GraphQL-схему. Она строится один раз на процесс
// и дальше только читается всеми запросами.
var Schema = sync.OnceValues(buildSchema)

func buildSchema() (graphql.Schema, error) {
	// Типы ссылаются друг на друга, поэтому поля объявляются thunk-ами
	// и вычисляются, когда все четыре объекта уже созданы.
	var userType, postType, commentType, likeType *graphql.Object

	userType = graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":               &graphql.Field{Type: graphql.ID},
				"name":             &graphql.Field{Type: graphql.String},
				"location":         &graphql.Field{Type: graphql.String},
				"avatarURL":        &graphql.Field{Type: graphql.String},
				"bio":              &graphql.Field{Type: graphql.String},
				"externalID":       &graphql.Field{Type: graphql.String},
				"externalUsername": &graphql.Field{Type: graphql.String},
				"posts": &graphql.Field{
					Type: graphql.NewList(postType),
					Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
						return r.User().Posts(p.Context, p.Source.(*domain.User))
					}),
				},
				"comments": &graphql.Field{
					Type: graphql.NewList(commentType),
					Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
						return r.User().Comments(p.Context, p.Source.(*domain.User))
					}),
				},
			}
		}),
	})

	postType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Post",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":            &graphql.Field{Type: graphql.ID},
				"title":         &graphql.Field{Type: graphql.String},
				"description":   &graphql.Field{Type: graphql.String},
				"repoURL":       &graphql.Field{Type: graphql.String},
				"websiteURL":    &graphql.Field{Type: graphql.String},
				"coverPhotoURL": &graphql.Field{Type: graphql.String},
				"author": &graphql.Field{
					Type: userType,
					Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
						return nullable(r.Post().Author(p.Context, p.Source.(*domain.Post)))
					}),
				},
				"comments": &graphql.Field{
					Type: graphql.NewList(commentType),
					Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
						return r.Post().Comments(p.Context, p.Source.(*domain.Post))
					}),
				},
				"numLikes": &graphql.Field{
					Type: graphql.Int,
					Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
						return r.Post().NumLikes(p.Context, p.Source.(*domain.Post))
					}),
				},
			}
		}),
	})

	commentType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Comment",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":      &graphql.Field{Type: graphql.ID},
				"content": &graphql.Field{Type: graphql.String},
				"post": &graphql.Field{
					Type: postType,
					Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
						return nullable(r.Comment().Post(p.Context, p.Source.(*domain.Comment)))
					}),
				},
				"author": &graphql.Field{
					Type: userType,
					Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
						return nullable(r.Comment().Author(p.Context, p.Source.(*domain.Comment)))
					}),
				},
			}
		}),
	})

	likeType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Like",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{Type: graphql.ID},
				"post": &graphql.Field{
					Type: postType,
					Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
						return nullable(r.Like().Post(p.Context, p.Source.(*domain.Like)))
					}),
				},
				"author": &graphql.Field{
					Type: userType,
					Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
						return nullable(r.Like().Author(p.Context, p.Source.(*domain.Like)))
					}),
				},
			}
		}),
	})

	idArgs := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"user": &graphql.Field{
				Type: userType,
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Query().User(p.Context))
				}),
			},
			"posts": &graphql.Field{
				Type: graphql.NewList(postType),
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return r.Query().Posts(p.Context)
				}),
			},
			"post": &graphql.Field{
				Type: postType,
				Args: idArgs,
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Query().Post(p.Context, p.Args["id"].(string)))
				}),
			},
			"comment": &graphql.Field{
				Type: commentType,
				Args: idArgs,
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Query().Comment(p.Context, p.Args["id"].(string)))
				}),
			},
			"like": &graphql.Field{
				Type: likeType,
				Args: idArgs,
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Query().Like(p.Context, p.Args["id"].(string)))
				}),
			},
		},
	})

	requiredString := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
	optionalString := &graphql.ArgumentConfig{Type: graphql.String}
	requiredID := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createPost": &graphql.Field{
				Type: postType,
				Args: graphql.FieldConfigArgument{
					"title":         requiredString,
					"description":   requiredString,
					"repoURL":       requiredString,
					"websiteURL":    requiredString,
					"coverPhotoURL": requiredString,
				},
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Mutation().CreatePost(p.Context, model.NewPost{
						Title:         p.Args["title"].(string),
						Description:   p.Args["description"].(string),
						RepoURL:       p.Args["repoURL"].(string),
						WebsiteURL:    p.Args["websiteURL"].(string),
						CoverPhotoURL: p.Args["coverPhotoURL"].(string),
					}))
				}),
			},
			"updatePost": &graphql.Field{
				Type: postType,
				Args: graphql.FieldConfigArgument{
					"id":            requiredID,
					"title":         optionalString,
					"description":   optionalString,
					"repoURL":       optionalString,
					"websiteURL":    optionalString,
					"coverPhotoURL": optionalString,
				},
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Mutation().UpdatePost(p.Context, p.Args["id"].(string), model.PostPatch{
						Title:         stringArg(p.Args, "title"),
						Description:   stringArg(p.Args, "description"),
						RepoURL:       stringArg(p.Args, "repoURL"),
						WebsiteURL:    stringArg(p.Args, "websiteURL"),
						CoverPhotoURL: stringArg(p.Args, "coverPhotoURL"),
					}))
				}),
			},
			"deletePost": &graphql.Field{
				Type: postType,
				Args: idArgs,
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Mutation().DeletePost(p.Context, p.Args["id"].(string)))
				}),
			},
			"createComment": &graphql.Field{
				Type: commentType,
				Args: graphql.FieldConfigArgument{
					"content": requiredString,
					"post":    requiredID,
				},
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Mutation().CreateComment(p.Context, model.NewComment{
						Content: p.Args["content"].(string),
						PostID:  p.Args["post"].(string),
					}))
				}),
			},
			"updateComment": &graphql.Field{
				Type: commentType,
				Args: graphql.FieldConfigArgument{
					"id":      requiredID,
					"content": requiredString,
				},
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Mutation().UpdateComment(p.Context, p.Args["id"].(string), p.Args["content"].(string)))
				}),
			},
			"deleteComment": &graphql.Field{
				Type: commentType,
				Args: idArgs,
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Mutation().DeleteComment(p.Context, p.Args["id"].(string)))
				}),
			},
			"createLike": &graphql.Field{
				Type: likeType,
				Args: graphql.FieldConfigArgument{
					"post": requiredID,
				},
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Mutation().CreateLike(p.Context, p.Args["post"].(string)))
				}),
			},
			"deleteLike": &graphql.Field{
				Type: likeType,
				Args: idArgs,
				Resolve: resolve(func(r *Resolver, p graphql.ResolveParams) (interface{}, error) {
					return nullable(r.Mutation().DeleteLike(p.Context, p.Args["id"].(string)))
				}),
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// stringArg возвращает nil, если аргумент не был передан.
func stringArg(args map[string]interface{}, name string) *string {
	v, ok := args[name].(string)
	if !ok {
		return nil
	}
	return &v
}

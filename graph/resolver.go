package graph

import (
	"context"
	"errors"
	"time"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/UkralStul/devshowcase-graphql/internal/observability"
	"github.com/UkralStul/devshowcase-graphql/internal/storage"
)

// Resolver - это корневая структура резолвера.
// Она содержит все зависимости, которые нужны для выполнения запросов.
// Схема общая для всего процесса, а Resolver передается в нее как root value
// каждого запроса.
type Resolver struct {
	Storage storage.Storage
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Request - GraphQL-документ с переменными.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

const rootResolverKey = "resolver"

var errNoResolver = errors.New("graph: resolver missing from root value")

// Execute валидирует и выполняет документ. Текущий пользователь берется из ctx.
func (r *Resolver) Execute(ctx context.Context, req Request) *graphql.Result {
	schema, err := Schema()
	if err != nil {
		return &graphql.Result{Errors: graphqlErrors(err)}
	}

	start := time.Now()
	result := graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		RootObject:     map[string]interface{}{rootResolverKey: r},
		Context:        ctx,
	})
	elapsed := time.Since(start)

	opType := operationType(req.Query, req.OperationName)
	r.Metrics.RecordOperation(opType, result.HasErrors(), elapsed)
	if r.Logger != nil {
		r.Logger.WithContext(ctx).Debug("graphql operation executed",
			zap.String("operation_type", opType),
			zap.String("operation_name", req.OperationName),
			zap.Int("errors", len(result.Errors)),
			zap.Duration("duration", elapsed),
		)
	}
	return result
}

// resolverFrom достает Resolver из root value текущего запроса.
func resolverFrom(info graphql.ResolveInfo) (*Resolver, error) {
	root, ok := info.RootValue.(map[string]interface{})
	if !ok {
		return nil, errNoResolver
	}
	r, ok := root[rootResolverKey].(*Resolver)
	if !ok || r == nil {
		return nil, errNoResolver
	}
	return r, nil
}

// resolve привязывает резолвер поля к Resolver текущего запроса.
func resolve(fn func(r *Resolver, p graphql.ResolveParams) (interface{}, error)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		r, err := resolverFrom(p.Info)
		if err != nil {
			return nil, err
		}
		return fn(r, p)
	}
}

// nullable превращает nil-указатель в нетипизированный nil, чтобы поле стало null.
func nullable[T any](v *T, err error) (interface{}, error) {
	if err != nil || v == nil {
		return nil, err
	}
	return v, nil
}

// Comment returns the Comment field resolvers.
func (r *Resolver) Comment() *commentResolver { return &commentResolver{r} }

// Like returns the Like field resolvers.
func (r *Resolver) Like() *likeResolver { return &likeResolver{r} }

// Mutation returns the Mutation root resolvers.
func (r *Resolver) Mutation() *mutationResolver { return &mutationResolver{r} }

// Post returns the Post field resolvers.
func (r *Resolver) Post() *postResolver { return &postResolver{r} }

// Query returns the Query root resolvers.
func (r *Resolver) Query() *queryResolver { return &queryResolver{r} }

// User returns the User field resolvers.
func (r *Resolver) User() *userResolver { return &userResolver{r} }

type commentResolver struct{ *Resolver }
type likeResolver struct{ *Resolver }
type mutationResolver struct{ *Resolver }
type postResolver struct{ *Resolver }
type queryResolver struct{ *Resolver }
type userResolver struct{ *Resolver }

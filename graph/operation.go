package graph

import (
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// operationType определяет тип выполняемой операции для метрик.
// Для документа, который не разбирается, возвращает "invalid".
func operationType(query, operationName string) string {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return "invalid"
	}
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if operationName == "" || (op.Name != nil && op.Name.Value == operationName) {
			return op.Operation
		}
	}
	return "unknown"
}

func graphqlErrors(err error) []gqlerrors.FormattedError {
	return []gqlerrors.FormattedError{gqlerrors.FormatError(err)}
}

package graph

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

// Handler принимает GraphQL-запросы по HTTP: POST с JSON-телом или GET с параметрами.
func (r *Resolver) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var gqlReq Request

		switch req.Method {
		case http.MethodGet:
			q := req.URL.Query()
			gqlReq.Query = q.Get("query")
			gqlReq.OperationName = q.Get("operationName")
			if vars := q.Get("variables"); vars != "" {
				if err := json.Unmarshal([]byte(vars), &gqlReq.Variables); err != nil {
					writeError(w, http.StatusBadRequest, "variables must be a JSON object")
					return
				}
			}
		case http.MethodPost:
			body := http.MaxBytesReader(w, req.Body, maxRequestBody)
			if err := json.NewDecoder(body).Decode(&gqlReq); err != nil {
				if errors.Is(err, io.EOF) {
					writeError(w, http.StatusBadRequest, "request body is empty")
					return
				}
				writeError(w, http.StatusBadRequest, "request body must be a JSON object")
				return
			}
		default:
			w.Header().Set("Allow", "GET, POST")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if gqlReq.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		// GET должен быть безопасным: cookie сессии уходит и с чужого сайта по ссылке
		if req.Method == http.MethodGet && operationType(gqlReq.Query, gqlReq.OperationName) == "mutation" {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "mutations must be sent with POST")
			return
		}

		result := r.Execute(req.Context(), gqlReq)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil && r.Logger != nil {
			r.Logger.WithContext(req.Context()).Warn("failed to write graphql response", zap.Error(err))
		}
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"errors": []map[string]string{{"message": message}},
	})
}

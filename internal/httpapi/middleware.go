package httpapi

import (
	"net/http"
	"strings"
)

// requireOperator checks the operator token, from cookie or bearer header.
func (a *API) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(operatorCookie); err == nil {
			token = c.Value
		}
		if token == "" {
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not authenticated"})
			return
		}

		if err := a.operator.Verify(token); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not authenticated"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

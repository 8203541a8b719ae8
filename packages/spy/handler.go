package spy

import (
	"net/http"
)

// Middleware records every request reaching next into the spy found with
// FromContext. The request body stays readable for next.
//
// A request whose body cannot be read is answered with 400 and not passed on.
func Middleware(next http.Handler) http.Handler {
	return MiddlewareFor(nil, next)
}

// MiddlewareFor is Middleware bound to s instead of the context or current spy.
func MiddlewareFor(s *Spy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		target := s
		if target == nil {
			target = FromContext(req.Context())
		}
		if target != nil {
			if err := target.Record(req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		next.ServeHTTP(w, req)
	})
}

package middlewares

import (
	"net/http"
	"net/url"
	"strings"

	httperrors "github.com/dropDatabas3/socialvault/internal/http/errors"
)

// WithOriginCheck valida Origin contra la allow-list, cayendo a Referer
// cuando Origin está ausente. Un Origin no vacío que no matchea se rechaza
// con 403; sin Origin ni Referer se deja pasar (clientes no-browser, que
// igual tienen que superar el bearer auth).
//
// Las rutas que reciben redirects top-level del provider (callback OAuth)
// se configuran sin este middleware.
func WithOriginCheck(allowed []string) Middleware {
	trim := func(s string) string { return strings.TrimRight(strings.TrimSpace(s), "/") }

	alist := make([]string, 0, len(allowed))
	for _, v := range allowed {
		if t := trim(v); t != "" {
			alist = append(alist, t)
		}
	}

	match := func(origin string) bool {
		for _, a := range alist {
			if a == "*" || strings.EqualFold(origin, a) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := trim(r.Header.Get("Origin"))
			if origin == "" {
				// fallback: scheme://host del Referer
				if ref := r.Header.Get("Referer"); ref != "" {
					if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
						origin = u.Scheme + "://" + u.Host
					}
				}
			}
			if origin != "" && !match(origin) {
				httperrors.WriteError(w, httperrors.ErrForbiddenOrigin)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

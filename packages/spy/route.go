package spy

import (
	"net/url"
	"strings"
)

// route is the target of an expectation: an absolute URL or a path.
type route struct {
	raw      string
	absolute bool
	// base is scheme://host/path for absolute routes, the normalized path otherwise.
	base  string
	query string
}

func parseRoute(raw string) route {
	r := route{raw: raw}

	target, query, hasQuery := strings.Cut(raw, "?")
	if hasQuery {
		r.query = query
	}

	if u, err := url.Parse(target); err == nil && u.Scheme != "" && u.Host != "" {
		r.absolute = true
		r.base = absoluteBase(u)
		return r
	}

	r.base = escapePath(normalizePath(target))
	return r
}

// matches reports whether u is addressed by the route. The query component
// is ignored here.
func (r route) matches(u *url.URL) bool {
	if r.absolute {
		return absoluteBase(u) == r.base
	}
	return normalizePath(u.EscapedPath()) == r.base
}

// absoluteBase lowercases scheme and host and drops the scheme's default port.
func absoluteBase(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if port := u.Port(); (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		host = strings.TrimSuffix(host, ":"+port)
	}
	return scheme + "://" + host + normalizePath(u.EscapedPath())
}

// escapePath encodes path the way url.Parse does, so "/a b" and "/a%20b"
// compare equal. Invalid escapes leave path as written.
func escapePath(path string) string {
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return path
	}
	u := url.URL{Path: unescaped, RawPath: path}
	return u.EscapedPath()
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

package urlutil

import (
	"net/url"
	"path"
	"strings"
)

// JoinPath appends path segments to a base URL, normalizing the slashes
// between base and segments. The query and scheme of base survive the
// join untouched.
func JoinPath(base string, paths ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	allPaths := append([]string{u.Path}, paths...)
	u.Path = path.Join(allPaths...)

	// path.Join strips a trailing slash; keep it when the caller asked for one
	if len(paths) > 0 && strings.HasSuffix(paths[len(paths)-1], "/") {
		u.Path += "/"
	}

	return u.String(), nil
}

// MustJoinPath joins like JoinPath and panics if base does not parse.
// Callers use it for endpoints assembled from validated configuration.
func MustJoinPath(base string, paths ...string) string {
	result, err := JoinPath(base, paths...)
	if err != nil {
		panic(err)
	}
	return result
}

package helpers

import (
	"net/url"
)

// UrlJoin resolves each element against base in turn. Absolute elements replace the
// base, relative ones are joined to its path.
func UrlJoin(baseUrl string, elem ...string) (string, error) {
	u, err := url.Parse(baseUrl)
	if err != nil {
		return "", err
	}

	for _, e := range elem {
		ref, err := url.Parse(e)
		if err != nil {
			return "", err
		}
		if ref.IsAbs() || len(e) > 0 && e[0] == '/' {
			u = u.ResolveReference(ref)
			continue
		}
		u = u.JoinPath(e)
	}

	return u.String(), nil
}

func IsValidHttpUrl(rawUrl string) bool {
	parsedUrl, err := url.ParseRequestURI(rawUrl)
	if err != nil || parsedUrl == nil {
		return false
	}
	if (parsedUrl.Scheme != "http" && parsedUrl.Scheme != "https") || parsedUrl.Host == "" {
		return false
	}
	return true
}

// IsAbsoluteUrl reports whether rawUrl parses as a URL with a scheme. Any scheme is
// accepted, so file and data URLs are valid too.
func IsAbsoluteUrl(rawUrl string) bool {
	parsedUrl, err := url.Parse(rawUrl)
	if err != nil || parsedUrl == nil {
		return false
	}
	return parsedUrl.IsAbs()
}

package parser

import (
	"fmt"
	"net/url"
	"strings"
)

// Scope maps URLs of one site to site-relative page paths and back.
type Scope struct {
	scheme   string
	host     string
	basePath string
}

func NewScope(siteURL string) (*Scope, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site url %q: %w", siteURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid site url %q: scheme must be http or https", siteURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid site url %q: missing host", siteURL)
	}

	return &Scope{
		scheme:   strings.ToLower(u.Scheme),
		host:     strings.ToLower(u.Host),
		basePath: strings.TrimSuffix(u.EscapedPath(), "/"),
	}, nil
}

// Path returns the path of rawURL relative to the site, beginning with "/".
// ok is false when the URL lies outside the site or is not a document.
func (s *Scope) Path(rawURL string) (path string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if strings.ToLower(u.Scheme) != s.scheme || strings.ToLower(u.Host) != s.host {
		return "", false
	}
	if !IsDocumentURL(rawURL) {
		return "", false
	}

	p := u.EscapedPath()
	switch {
	case p == s.basePath || p == s.basePath+"/":
		return "/", true
	case strings.HasPrefix(p, s.basePath+"/"):
		p = strings.TrimPrefix(p, s.basePath)
	default:
		return "", false
	}

	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p, true
}

// URL returns the absolute URL of a site-relative path.
func (s *Scope) URL(path string) string {
	root := s.scheme + "://" + s.host + s.basePath
	if path == "/" && s.basePath != "" {
		return root
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return root + path
}

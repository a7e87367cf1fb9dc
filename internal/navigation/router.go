package navigation

import (
	"net/url"
	"strings"
)

// APIPrefix is the path prefix of every API resource. The router's routes exclude it.
const APIPrefix = "/api"

// RouterPath maps an API href to the path shown in the browser's address bar by
// dropping scheme, host and the /api prefix. Query and fragment are kept.
func RouterPath(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	p := u.Path
	if p == APIPrefix || strings.HasPrefix(p, APIPrefix+"/") {
		p = strings.TrimPrefix(p, APIPrefix)
	}
	if p == "" {
		p = "/"
	}

	out := url.URL{Path: p, RawQuery: u.RawQuery, Fragment: u.Fragment}
	return out.String()
}

// APIPath maps a router path back to the API href.
func APIPath(routerPath string) string {
	u, err := url.Parse(routerPath)
	if err != nil {
		return APIPrefix + "/" + strings.TrimLeft(routerPath, "/")
	}

	p := "/" + strings.TrimLeft(u.Path, "/")
	if p == "/" {
		p = APIPrefix
	} else if p != APIPrefix && !strings.HasPrefix(p, APIPrefix+"/") {
		p = APIPrefix + p
	}

	out := url.URL{Path: p, RawQuery: u.RawQuery, Fragment: u.Fragment}
	return out.String()
}

// Utilities for lifting credentials out of "Copy as cURL" exports.
package shared

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var (
	curlHeaderRe = regexp.MustCompile(`(?:-H|--header)\s+(?:'([^']+)'|"([^"]+)")`)
	curlCookieRe = regexp.MustCompile(`(?:-b|--cookie)\s+(?:'([^']+)'|"([^"]+)")`)
	curlMethodRe = regexp.MustCompile(`(?:-X|--request)\s+'?"?([A-Za-z]+)`)
	curlURLRe    = regexp.MustCompile(`(?:'|"|\s)(https?://[^'"\s]+)`)
)

// CurlRequest is the subset of a cURL invocation halx cares about.
type CurlRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a file containing a cURL command and parses it.
func ParseCurlFile(path string) (*CurlRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand extracts the target URL, method, headers and cookie from a cURL command.
//
// Header names are canonicalised to lower case. Cookie headers are folded into Cookie.
func ParseCurlCommand(data []byte) (*CurlRequest, error) {
	cmd := strings.ReplaceAll(string(data), "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\", "")

	req := &CurlRequest{Method: "GET", Headers: make(map[string]string)}

	for _, match := range curlHeaderRe.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(firstNonEmpty(match[1], match[2]), ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if key == "cookie" {
			if req.Cookie == "" {
				req.Cookie = value
			}
			continue
		}
		req.Headers[key] = value
	}

	if m := curlCookieRe.FindStringSubmatch(cmd); m != nil {
		req.Cookie = firstNonEmpty(m[1], m[2])
	}

	if m := curlMethodRe.FindStringSubmatch(cmd); m != nil {
		req.Method = strings.ToUpper(m[1])
	} else if strings.Contains(cmd, "--data") || strings.Contains(cmd, " -d ") {
		req.Method = "POST"
	}

	if m := curlURLRe.FindStringSubmatch(cmd); m != nil {
		req.URL = m[1]
	}

	if len(req.Headers) == 0 && req.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}

	return req, nil
}

// BearerToken returns the token carried in the Authorization header.
func (c *CurlRequest) BearerToken() (string, error) {
	auth, ok := c.Headers["authorization"]
	if !ok {
		return "", fmt.Errorf("%w: no authorization header", ErrMissingCredentials)
	}

	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: authorization header is not a bearer token", ErrMissingCredentials)
	}

	return strings.TrimSpace(token), nil
}

// HeaderLines renders headers as newline-separated "Key: Value" pairs in a stable order.
func (c *CurlRequest) HeaderLines() string {
	keys := make([]string, 0, len(c.Headers))
	for k := range c.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		lines = append(lines, k+": "+c.Headers[k])
	}
	if c.Cookie != "" {
		lines = append(lines, "cookie: "+c.Cookie)
	}
	return strings.Join(lines, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

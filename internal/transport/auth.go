package transport

import "net/http"

// Authenticator applies a credential to outgoing requests.
type Authenticator interface {
	Apply(req *http.Request, token string)
}

// NoAuth applies no credential.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth sends the token as "Authorization: Bearer <token>".
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// HeaderAuth sends the token verbatim in a custom header.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, token string) {
	req.Header.Set(a.Header, token)
}

// QueryAuth sends the token as a query parameter.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, token string) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	query.Set(a.Param, token)
	req.URL.RawQuery = query.Encode()
}

// AuthFor picks an authenticator from a header name: empty or
// "Authorization" means bearer, "?name" means query parameter name, and
// anything else is sent as a raw header.
func AuthFor(header string) Authenticator {
	switch {
	case header == "" || http.CanonicalHeaderKey(header) == "Authorization":
		return &BearerAuth{}
	case header[0] == '?':
		return &QueryAuth{Param: header[1:]}
	default:
		return &HeaderAuth{Header: header}
	}
}

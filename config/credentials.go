package config

import "strings"

// Credentials is the resolved credential variant. Exactly one of NoSync,
// GraphCredentials or PortalCredentials.
type Credentials interface {
	credentials()
}

// NoSync means no usable credentials were found; the run stays local-only.
type NoSync struct{}

// GraphCredentials is an OAuth2 client-credentials triple for the document API.
type GraphCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// PortalCredentials are site-login credentials. They cannot authorize
// the remote sheet.
type PortalCredentials struct {
	Email    string
	Password string
}

func (NoSync) credentials()            {}
func (GraphCredentials) credentials()  {}
func (PortalCredentials) credentials() {}

// ResolveCredentials inspects the environment once. Graph credentials win
// over portal credentials; partial sets count as absent.
func ResolveCredentials(getenv func(string) string) Credentials {
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }

	if tid, cid, cs := get("TENANT_ID"), get("CLIENT_ID"), get("CLIENT_SECRET"); tid != "" && cid != "" && cs != "" {
		return GraphCredentials{TenantID: tid, ClientID: cid, ClientSecret: cs}
	}
	if email, pwd := get("CB_EMAIL"), get("CB_PASSWORD"); email != "" && pwd != "" {
		return PortalCredentials{Email: email, Password: pwd}
	}
	return NoSync{}
}

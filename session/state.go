package session

import "golang.org/x/oauth2"

// State is the session state encoded by which cookies a request carries.
type State int

const (
	// Unauthenticated: neither token is present.
	Unauthenticated State = iota
	// AccessValid: an access token is present and not known to be expired.
	AccessValid
	// NeedsRefresh: the access token is missing, expired or rejected and a
	// refresh token is available.
	NeedsRefresh
	// Invalid: an unusable access token with nothing to refresh it with.
	Invalid
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AccessValid:
		return "access_valid"
	case NeedsRefresh:
		return "needs_refresh"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Classify maps a cookie pair onto a State.
func Classify(tok *oauth2.Token) State {
	if tok == nil {
		return Unauthenticated
	}
	hasAccess := tok.AccessToken != "" && !Expired(tok)
	switch {
	case hasAccess:
		return AccessValid
	case tok.RefreshToken != "":
		return NeedsRefresh
	case tok.AccessToken != "":
		return Invalid
	default:
		return Unauthenticated
	}
}

// AfterRejection is the state once the upstream has rejected the access token.
func AfterRejection(tok *oauth2.Token) State {
	if tok != nil && tok.RefreshToken != "" {
		return NeedsRefresh
	}
	return Invalid
}

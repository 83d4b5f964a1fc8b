package accessgate

import (
	"github.com/clubops/admingate/services/sessions"
)

// Stage is the caller's position in the layered access state machine.
// Each stage gates entry to the next; the machine is re-derived from
// request credentials on every request, with no server-side memory of
// where a caller "is".
type Stage string

const (
	// StageNoGate: no valid shared-secret grant presented.
	StageNoGate Stage = "no_gate"
	// StageNoIdentity: gate passed, no upstream identity.
	StageNoIdentity Stage = "no_identity"
	// StageDenied: authenticated identity that is not on the privileged
	// allow-list. Terminal hard deny, never remediable by the caller.
	StageDenied Stage = "denied"
	// StageNoSession: allow-listed identity without a live session.
	StageNoSession Stage = "no_session"
	// StageVerified: every stage satisfied, request may proceed.
	StageVerified Stage = "verified"
)

// Credentials are the raw tokens extracted from request cookies. They
// are the entire input to state derivation.
type Credentials struct {
	GateGrant     string
	IdentityToken string
	SessionToken  string
}

// AccessState is the derived position plus whatever was proven along
// the way. Session is non-nil only at StageVerified.
type AccessState struct {
	Stage   Stage
	Subject string
	Session *sessions.SessionRecord
}

// GrantVerifier proves the shared-secret stage.
type GrantVerifier interface {
	VerifyGrant(token string) error
}

// IdentityResolver proves the identity stage and applies the allow-list.
type IdentityResolver interface {
	SubjectFromToken(token string) (string, error)
	IsPrivileged(subject string) bool
}

// SessionValidator proves the final stage.
type SessionValidator interface {
	Validate(token string) (*sessions.SessionRecord, error)
}

// DeriveAccessState walks the stages in their required order and stops
// at the first one the credentials cannot satisfy. It performs at most
// one store round trip (the session lookup) and is callable directly in
// tests without an HTTP server.
func DeriveAccessState(creds Credentials, gates GrantVerifier, identities IdentityResolver, sessionAuth SessionValidator) AccessState {
	if creds.GateGrant == "" || gates.VerifyGrant(creds.GateGrant) != nil {
		return AccessState{Stage: StageNoGate}
	}

	subject, err := identities.SubjectFromToken(creds.IdentityToken)
	if err != nil {
		return AccessState{Stage: StageNoIdentity}
	}

	if !identities.IsPrivileged(subject) {
		return AccessState{Stage: StageDenied, Subject: subject}
	}

	session, err := sessionAuth.Validate(creds.SessionToken)
	if err != nil {
		return AccessState{Stage: StageNoSession, Subject: subject}
	}

	return AccessState{Stage: StageVerified, Subject: subject, Session: session}
}

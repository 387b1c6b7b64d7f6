package token

// rejectReason records why a token was refused. It is only ever logged.
type rejectReason string

const (
	reasonMalformed         rejectReason = "malformed"
	reasonSignature         rejectReason = "signature"
	reasonAlgorithm         rejectReason = "algorithm"
	reasonExpired           rejectReason = "expired"
	reasonClaims            rejectReason = "claims"
	reasonMissingIdentifier rejectReason = "missing_identifier"
)

// Outcome is the result of Verify: either a valid Token or a rejection.
// A rejection carries no caller-visible cause.
type Outcome struct {
	token  *Token
	reason rejectReason
}

// Valid reports whether verification succeeded.
func (o Outcome) Valid() bool {
	return o.token != nil
}

// Token returns the verified descriptor and true, or nil and false when rejected.
func (o Outcome) Token() (*Token, bool) {
	return o.token, o.token != nil
}

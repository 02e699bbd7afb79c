package ocpp

// ChargePointIdentity identifies one charge point connection, optionally narrowed
// to a user scope. Immutable value type, safe as a map key. Two identities are
// equal iff both fields match.
type ChargePointIdentity struct {
	Identifier string
	UserScope  int64 // 0 when the connection carries no user scope
}

func NewIdentity(identifier string) ChargePointIdentity {
	return ChargePointIdentity{Identifier: identifier}
}

func ScopedIdentity(identifier string, userScope int64) ChargePointIdentity {
	return ChargePointIdentity{Identifier: identifier, UserScope: userScope}
}

// Boundary returns the identity with an empty identifier for the given scope,
// the lower bound when range-scanning identities of one user scope.
func Boundary(userScope int64) ChargePointIdentity {
	return ChargePointIdentity{UserScope: userScope}
}

func (i ChargePointIdentity) Scoped() bool {
	return i.UserScope != 0
}

func (i ChargePointIdentity) String() string {
	return i.Identifier
}

// SessionKey addresses one connector of one charge point. Connector id 0 denotes
// the charge point itself.
type SessionKey struct {
	ChargePointId int64
	ConnectorId   int
}

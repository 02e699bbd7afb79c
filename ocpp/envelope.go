package ocpp

// Envelope carries one decoded action message through the dispatcher.
type Envelope struct {
	Client        ChargePointIdentity
	Action        Action
	Payload       Request
	CorrelationId string
}

// ResultCallback delivers the outcome of one dispatched envelope. Exactly one of
// result and callErr is non-nil.
type ResultCallback func(env *Envelope, result Response, callErr *Error)

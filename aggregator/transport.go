package aggregator

// Transport is the delegated collaborator that ships an encoded
// payload to the collector. Implementations own their own retry,
// timeout and acknowledgement-parsing policy; the aggregator treats
// any non-nil error as a flush failure, counts it, and moves on — see
// package transport for the default HTTP implementation.
type Transport interface {
	SendPipelineStats(payload []byte) error
}

// NopTransport discards every payload. Used when the agent collaborator
// reports "not enabled" and no aggregator is started, and safe to wire
// in tests that don't care about delivery.
type NopTransport struct{}

func (NopTransport) SendPipelineStats([]byte) error { return nil }

package opup

// EventPublisher observes a session's transactions from outside the
// request/response path. It is entirely optional — a Session with no
// publisher attached behaves exactly as the core spec describes. See
// pkg/opup/redis.go for the Redis-backed implementation, grounded on the
// teacher's WriteAndPublishString pub/sub pattern.
type EventPublisher interface {
	PublishTransaction(opcode Opcode, err error)
}

type noopPublisher struct{}

func (noopPublisher) PublishTransaction(Opcode, error) {}

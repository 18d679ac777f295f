package pipeline

// StageResult is the outcome of one fan-out slot: either the stage's genuine
// payload or a synthesized fallback with the reason the stage degraded.
type StageResult[T any] struct {
	payload  T
	fallback bool
	reason   string
}

func Success[T any](payload T) StageResult[T] {
	return StageResult[T]{payload: payload}
}

func Fallback[T any](payload T, reason string) StageResult[T] {
	return StageResult[T]{payload: payload, fallback: true, reason: reason}
}

func (r StageResult[T]) Payload() T { return r.payload }

// IsFallback reports whether the payload was synthesized rather than genuine.
func (r StageResult[T]) IsFallback() bool { return r.fallback }

func (r StageResult[T]) Reason() string { return r.reason }

package types

// Outcome reports an expected business result. A failed Outcome is a normal,
// user-actionable state (already rented, already subscribed) and is returned
// with a nil error; faults travel as errors instead.
//
// Build values with Succeed or Fail.
type Outcome[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func Succeed[T any](data T, message string) *Outcome[T] {
	return &Outcome[T]{Success: true, Message: message, Data: data}
}

func Fail[T any](message string) *Outcome[T] {
	return &Outcome[T]{Success: false, Message: message}
}

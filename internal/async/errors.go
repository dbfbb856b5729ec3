package async

import "errors"

// Sentinel errors for the dispatch engine.
var (
	// ErrShutdown is returned when registering a producer after Shutdown.
	ErrShutdown = errors.New("async handler is shut down")

	// ErrNilProducer is returned when Register is given a nil producer.
	ErrNilProducer = errors.New("producer cannot be nil")
)

package settings

// Environment reports whether code runs in a client execution context.
// Load and Save only touch storage when IsClient returns true.
type Environment interface {
	IsClient() bool
}

// EnvironmentFunc adapts a plain function to the Environment interface.
type EnvironmentFunc func() bool

// IsClient calls f.
func (f EnvironmentFunc) IsClient() bool {
	return f()
}

type staticEnvironment bool

func (e staticEnvironment) IsClient() bool {
	return bool(e)
}

var (
	// Client is an Environment that always reports a client context.
	Client Environment = staticEnvironment(true)

	// Server is an Environment that never reports a client context.
	Server Environment = staticEnvironment(false)
)

package port

// Owner is the stage (or stage subcomponent) a group of ports belongs to.
type Owner interface {
	// Name is used for port specs and as the default payload source tag.
	Name() string
	// Scope is the connection context; ports of owners in different scopes
	// can never be connected.
	Scope() Scope
	// Executing reports whether the owner is currently inside its execution step.
	Executing() bool
}

// Scope is a connection context such as a process or subprocess.
type Scope interface {
	ScopeID() string
	Environment() *Environment
}

// OutputFinder is optionally implemented by scopes that can enumerate
// unconnected outputs; preconditions use it to suggest connection quick fixes.
type OutputFinder interface {
	FreeOutputs() []*OutputPort
}

func scopeOf(o Owner) Scope {
	if o == nil {
		return nil
	}
	return o.Scope()
}

// sameScope is false when either owner has no scope, so detached stages can
// never be connected.
func sameScope(a, b Owner) bool {
	sa, sb := scopeOf(a), scopeOf(b)
	if sa == nil || sb == nil {
		return false
	}
	return sa.ScopeID() == sb.ScopeID()
}

func environmentOf(o Owner) *Environment {
	if s := scopeOf(o); s != nil {
		if env := s.Environment(); env != nil {
			return env
		}
	}
	return defaultEnvironment
}

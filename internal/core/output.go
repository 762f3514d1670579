package core

// OutputContext tracks which output and workspace are current for
// filtering. Empty strings mean "unknown".
type OutputContext struct {
	activeOutput    string
	activeWorkspace string
	boundOutput     string
}

// NewOutputContext creates an OutputContext bound to the given output.
// An empty name leaves the applet unbound.
func NewOutputContext(boundOutput string) *OutputContext {
	return &OutputContext{boundOutput: boundOutput}
}

// SetActiveOutput records the focused output.
func (o *OutputContext) SetActiveOutput(name string) bool {
	if o.activeOutput == name {
		return false
	}
	o.activeOutput = name
	return true
}

// SetActiveWorkspace records the focused workspace.
func (o *OutputContext) SetActiveWorkspace(ws string) bool {
	if o.activeWorkspace == ws {
		return false
	}
	o.activeWorkspace = ws
	return true
}

// Bind sets the output this applet instance is bound to.
func (o *OutputContext) Bind(name string) bool {
	if o.boundOutput == name {
		return false
	}
	o.boundOutput = name
	return true
}

// ActiveOutput returns the focused output, or "" if unknown.
func (o *OutputContext) ActiveOutput() string { return o.activeOutput }

// ActiveWorkspace returns the focused workspace, or "" if unknown.
func (o *OutputContext) ActiveWorkspace() string { return o.activeWorkspace }

// BoundOutput returns the configured output, or "" if unbound.
func (o *OutputContext) BoundOutput() string { return o.boundOutput }

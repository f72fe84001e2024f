package telemetry

// Nodes is the closed, ordered set of node identifiers the dashboard knows about.
// Order is the configured order and drives selection cycling.
type Nodes []string

// Contains reports whether name is one of the configured nodes.
func (n Nodes) Contains(name string) bool {
	return n.Index(name) >= 0
}

// Index returns the position of name, or -1 if it is not configured.
func (n Nodes) Index(name string) int {
	for i, node := range n {
		if node == name {
			return i
		}
	}
	return -1
}

// Next returns the node after name, wrapping around. Unknown names map to the first node.
func (n Nodes) Next(name string) string {
	if len(n) == 0 {
		return ""
	}
	i := n.Index(name)
	if i < 0 {
		return n[0]
	}
	return n[(i+1)%len(n)]
}

// Prev returns the node before name, wrapping around. Unknown names map to the last node.
func (n Nodes) Prev(name string) string {
	if len(n) == 0 {
		return ""
	}
	i := n.Index(name)
	if i < 0 {
		return n[len(n)-1]
	}
	return n[(i-1+len(n))%len(n)]
}

// Default returns preferred when it is configured, otherwise the first node.
func (n Nodes) Default(preferred string) string {
	switch {
	case n.Contains(preferred):
		return preferred
	case len(n) == 0:
		return ""
	default:
		return n[0]
	}
}

package tree

import "fmt"

// Collection is the collector's output for one file: the full node list in
// strict post-order (every child precedes its parent) plus the containers
// discovered along the way.
type Collection struct {
	Root       *Node
	Nodes      []*Node
	Containers map[string]*Container
}

// NameFunc derives a container's display name from its raw node. The default
// reads RawNode.Name; frontends that cannot fill it can supply their own.
type NameFunc func(*RawNode) string

// CollectOption configures a collection run.
type CollectOption func(*collector)

// WithNameFunc overrides container name extraction.
func WithNameFunc(fn NameFunc) CollectOption {
	return func(c *collector) {
		c.nameOf = fn
	}
}

type collector struct {
	src        *Source
	dialect    *Dialect
	nameOf     NameFunc
	nextID     int
	nodes      []*Node
	containers map[string]*Container
}

// Collect flattens a raw tree into statement nodes via a single post-order
// traversal. Structural nodes conclude immediately at creation so nothing
// ever blocks waiting on a node that will never be annotated. Malformed
// spans and unnameable containers abort collection; nothing is clamped.
func Collect(raw *RawNode, src *Source, dialect *Dialect, opts ...CollectOption) (*Collection, error) {
	c := &collector{
		src:        src,
		dialect:    dialect,
		nameOf:     func(r *RawNode) string { return r.Name },
		containers: make(map[string]*Container),
	}
	for _, opt := range opts {
		opt(c)
	}

	root, err := c.visit(raw, "")
	if err != nil {
		return nil, err
	}
	return &Collection{
		Root:       root,
		Nodes:      c.nodes,
		Containers: c.containers,
	}, nil
}

// visit processes children before creating the node itself, which yields the
// post-order node list and the child-before-parent ID order the planner and
// scheduler both rely on.
func (c *collector) visit(raw *RawNode, enclosingKey string) (*Node, error) {
	numbered, err := c.src.NumberedSpan(raw.StartLine, raw.EndLine)
	if err != nil {
		return nil, fmt.Errorf("tree: %s node: %w", raw.Kind, err)
	}

	childKey := enclosingKey
	if c.dialect.IsContainer(raw.Kind) {
		key, err := c.registerContainer(raw, enclosingKey)
		if err != nil {
			return nil, err
		}
		childKey = key
	}

	children := make([]*Node, 0, len(raw.Children))
	for _, rc := range raw.Children {
		cn, err := c.visit(rc, childKey)
		if err != nil {
			return nil, err
		}
		children = append(children, cn)
	}

	c.nextID++
	n := &Node{
		ID:           c.nextID,
		Kind:         raw.Kind,
		StartLine:    raw.StartLine,
		EndLine:      raw.EndLine,
		Children:     children,
		Analyzable:   !c.dialect.IsStructural(raw.Kind),
		ContainerKey: enclosingKey,
		lines:        numbered,
		done:         NewSignal(),
	}
	n.TokenCost = EstimateTokens(n.RawCode())
	for _, ch := range children {
		ch.Parent = n
	}

	if n.Analyzable {
		if enclosingKey != "" {
			c.containers[enclosingKey].AddPending(1)
		}
	} else {
		n.Conclude("", "")
	}

	c.nodes = append(c.nodes, n)
	return n, nil
}

// registerContainer mints the container for a raw node, keyed by enclosing
// scope, declared name, and start line so duplicate or shadowed names stay
// distinct. Re-entering an existing key is a no-op.
func (c *collector) registerContainer(raw *RawNode, enclosingKey string) (string, error) {
	name := c.nameOf(raw)
	if name == "" {
		return "", fmt.Errorf("tree: %s node at line %d: container has no name", raw.Kind, raw.StartLine)
	}
	scope := enclosingKey
	if scope == "" {
		scope = c.src.Name()
	}
	key := fmt.Sprintf("%s/%s:%d", scope, name, raw.StartLine)
	if _, ok := c.containers[key]; !ok {
		c.containers[key] = &Container{
			Key:       key,
			Name:      name,
			Kind:      raw.Kind,
			StartLine: raw.StartLine,
			EndLine:   raw.EndLine,
		}
	}
	return key, nil
}

package tree

import "sync"

// Dialect classifies raw node kinds for one syntax family: which kinds mint
// containers and which are structural wrappers that never reach annotation.
// Both syntax families (procedural SQL and object-oriented source) run
// through the same collector with different dialects.
type Dialect struct {
	Name       string
	containers map[string]bool
	structural map[string]bool
}

// NewDialect builds a Dialect from kind lists.
func NewDialect(name string, containers, structural []string) *Dialect {
	d := &Dialect{
		Name:       name,
		containers: make(map[string]bool, len(containers)),
		structural: make(map[string]bool, len(structural)),
	}
	for _, k := range containers {
		d.containers[k] = true
	}
	for _, k := range structural {
		d.structural[k] = true
	}
	return d
}

// IsContainer reports whether the kind registers a Container.
func (d *Dialect) IsContainer(kind string) bool {
	return d.containers[kind]
}

// IsStructural reports whether the kind is a non-analyzable wrapper.
func (d *Dialect) IsStructural(kind string) bool {
	return d.structural[kind]
}

var (
	dialectMu sync.RWMutex
	dialects  = map[string]*Dialect{}
)

// RegisterDialect adds a dialect to the global registry, replacing any
// previous dialect of the same name.
func RegisterDialect(d *Dialect) {
	dialectMu.Lock()
	dialects[d.Name] = d
	dialectMu.Unlock()
}

// LookupDialect returns the registered dialect for name.
func LookupDialect(name string) (*Dialect, bool) {
	dialectMu.RLock()
	defer dialectMu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

func init() {
	RegisterDialect(NewDialect("sql",
		[]string{"create_procedure", "create_function", "create_trigger"},
		[]string{"sql_file", "comment", "delimiter_statement"},
	))
	RegisterDialect(NewDialect("go",
		[]string{"function_declaration", "method_declaration", "type_declaration"},
		[]string{"source_file", "package_clause", "import_declaration", "comment"},
	))
	RegisterDialect(NewDialect("python",
		[]string{"function_definition", "class_definition"},
		[]string{"module", "import_statement", "import_from_statement", "comment"},
	))
	RegisterDialect(NewDialect("rust",
		[]string{"function_item", "impl_item", "struct_item", "enum_item", "trait_item"},
		[]string{"source_file", "use_declaration", "mod_item", "attribute_item", "line_comment", "block_comment"},
	))
	RegisterDialect(NewDialect("typescript",
		[]string{"function_declaration", "method_definition", "class_declaration", "interface_declaration"},
		[]string{"program", "import_statement", "export_statement", "comment"},
	))
}

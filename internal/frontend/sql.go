package frontend

import (
	"strings"

	"github.com/dusk-indust/gloss/internal/tree"
)

// sqlFrontend scans procedural SQL line by line. No grammar dependency:
// routine headers, BEGIN/END blocks, and semicolon-terminated statements
// are recognized at line granularity, with string literals and comments
// blanked out first so keywords inside them never fire.
type sqlFrontend struct {
	dialect *tree.Dialect
}

func newSQLFrontend() *sqlFrontend {
	d, _ := tree.LookupDialect("sql")
	return &sqlFrontend{dialect: d}
}

func (f *sqlFrontend) Language() string       { return "sql" }
func (f *sqlFrontend) Extensions() []string   { return []string{".sql"} }
func (f *sqlFrontend) Dialect() *tree.Dialect { return f.dialect }

var sqlRoutineKinds = map[string]string{
	"PROCEDURE": "create_procedure",
	"FUNCTION":  "create_function",
	"TRIGGER":   "create_trigger",
}

var sqlBlockKinds = map[string]string{
	"IF":     "if_statement",
	"WHILE":  "while_statement",
	"LOOP":   "loop_statement",
	"CASE":   "case_statement",
	"REPEAT": "repeat_statement",
}

var sqlStatementKinds = map[string]string{
	"SELECT":   "select_statement",
	"INSERT":   "insert_statement",
	"UPDATE":   "update_statement",
	"DELETE":   "delete_statement",
	"DECLARE":  "declare_statement",
	"SET":      "set_statement",
	"CALL":     "call_statement",
	"EXEC":     "call_statement",
	"EXECUTE":  "call_statement",
	"RETURN":   "return_statement",
	"CREATE":   "create_statement",
	"DROP":     "drop_statement",
	"ALTER":    "alter_statement",
	"GRANT":    "grant_statement",
	"REVOKE":   "revoke_statement",
	"COMMIT":   "commit_statement",
	"ROLLBACK": "rollback_statement",
	"TRUNCATE": "truncate_statement",
	"MERGE":    "merge_statement",
	"WITH":     "select_statement",
	"SIGNAL":   "signal_statement",
	"FETCH":    "fetch_statement",
	"OPEN":     "open_statement",
	"CLOSE":    "close_statement",
	"LEAVE":    "leave_statement",
	"ITERATE":  "iterate_statement",
}

// sqlOpen is one open nesting context: the file root, a routine, or a
// control-flow block awaiting its END.
type sqlOpen struct {
	raw      *tree.RawNode
	routine  bool
	bodyOpen bool // routine only: its body BEGIN has been seen
}

type sqlParse struct {
	delim          string
	inBlockComment bool
	stack          []*sqlOpen
	openStmt       *tree.RawNode
}

// Parse scans the file into a raw tree rooted at a sql_file node.
func (f *sqlFrontend) Parse(path string, src []byte) (*tree.RawNode, error) {
	lines := strings.Split(string(src), "\n")
	root := &tree.RawNode{Kind: "sql_file", StartLine: 1, EndLine: len(lines)}

	p := &sqlParse{
		delim: ";",
		stack: []*sqlOpen{{raw: root}},
	}

	for i, line := range lines {
		lineNo := i + 1
		cleaned := p.clean(strings.TrimSuffix(line, "\r"))

		// Client delimiter switches are handled before terminator
		// rewriting so a re-declared delimiter never erases itself.
		if fields := strings.Fields(cleaned); len(fields) >= 2 && strings.EqualFold(fields[0], "DELIMITER") {
			p.top().raw.AddChild(&tree.RawNode{
				Kind: "delimiter_statement", StartLine: lineNo, EndLine: lineNo,
			})
			p.delim = fields[1]
			continue
		}
		if p.delim != ";" {
			cleaned = strings.ReplaceAll(cleaned, p.delim, ";")
		}

		if p.openStmt != nil {
			idx := strings.IndexByte(cleaned, ';')
			if idx < 0 {
				p.openStmt.EndLine = lineNo
				continue
			}
			p.openStmt.EndLine = lineNo
			p.openStmt = nil
			cleaned = cleaned[idx+1:]
		}
		p.dispatch(cleaned, lineNo)
	}

	// Unterminated constructs close at end of file.
	for len(p.stack) > 1 {
		p.pop(len(lines))
	}
	return root, nil
}

// dispatch consumes one line's remaining significant text, opening and
// closing constructs as keywords appear.
func (p *sqlParse) dispatch(text string, lineNo int) {
	for {
		text = strings.TrimLeft(text, " \t")
		if text == "" {
			return
		}
		if text[0] == ';' {
			text = text[1:]
			continue
		}

		word, rest := cutWord(text)
		upper := strings.ToUpper(word)

		switch {
		case upper == "END":
			p.closeAtEnd(rest, lineNo)
			// The END clause owns the rest of its statement.
			idx := strings.IndexByte(rest, ';')
			if idx < 0 {
				return
			}
			text = rest[idx+1:]

		case upper == "ELSE" || upper == "ELSEIF" || upper == "ELSIF" || upper == "THEN" || upper == "DO":
			text = rest

		case upper == "WHEN":
			// CASE arm: skip the condition up to its THEN.
			idx := strings.Index(strings.ToUpper(rest), "THEN")
			if idx < 0 {
				return
			}
			text = rest[idx+len("THEN"):]

		case upper == "UNTIL":
			// REPEAT terminator: skip the condition up to END REPEAT.
			idx := strings.Index(strings.ToUpper(rest), "END")
			if idx < 0 {
				return
			}
			text = rest[idx:]

		case strings.HasSuffix(word, ":"):
			text = rest // block label

		case upper == "BEGIN":
			if top := p.top(); top.routine && !top.bodyOpen {
				top.bodyOpen = true
			} else {
				p.push(&tree.RawNode{Kind: "begin_block", StartLine: lineNo, EndLine: lineNo}, false)
			}
			text = rest

		case upper == "CREATE":
			if kind, name, after, ok := routineHeader(rest); ok {
				p.push(&tree.RawNode{Kind: kind, Name: name, StartLine: lineNo, EndLine: lineNo}, true)
				p.scanRoutineHeaderTail(after, lineNo)
				return
			}
			text = p.openStatement(statementKind(upper), rest, lineNo)

		case sqlBlockKinds[upper] != "":
			if strings.Contains(strings.ToUpper(rest), "END "+upper) {
				// Whole block on one line: a single leaf statement.
				text = p.openStatement(sqlBlockKinds[upper], rest, lineNo)
				continue
			}
			p.push(&tree.RawNode{Kind: sqlBlockKinds[upper], StartLine: lineNo, EndLine: lineNo}, false)
			return // the rest of the line is the block's own clause

		default:
			text = p.openStatement(statementKind(upper), rest, lineNo)
		}

		if p.openStmt != nil {
			return // statement continues on the next line
		}
	}
}

func statementKind(keyword string) string {
	if kind := sqlStatementKinds[keyword]; kind != "" {
		return kind
	}
	return "sql_statement"
}

// openStatement starts a simple statement at lineNo and closes it if its
// terminator is on the same line. Returns the unconsumed text.
func (p *sqlParse) openStatement(kind, rest string, lineNo int) string {
	n := p.top().raw.AddChild(&tree.RawNode{Kind: kind, StartLine: lineNo, EndLine: lineNo})

	idx := strings.IndexByte(rest, ';')
	if idx < 0 {
		p.openStmt = n
		return ""
	}
	return rest[idx+1:]
}

// closeAtEnd resolves an END keyword: END IF/WHILE/LOOP/CASE/REPEAT closes
// the nearest block of that kind, a bare END closes the top block or the
// enclosing routine body.
func (p *sqlParse) closeAtEnd(rest string, lineNo int) {
	word, _ := cutWord(rest)
	if kind, ok := sqlBlockKinds[strings.ToUpper(word)]; ok {
		for i := len(p.stack) - 1; i > 0; i-- {
			if !p.stack[i].routine && p.stack[i].raw.Kind == kind {
				for len(p.stack) > i {
					p.pop(lineNo)
				}
				return
			}
			if p.stack[i].routine {
				break // never reach across a routine boundary
			}
		}
		return
	}
	if len(p.stack) > 1 {
		p.pop(lineNo)
	}
}

// scanRoutineHeaderTail inspects what follows a routine's name on its
// CREATE line: an inline BEGIN opens the body, an inline terminator means
// a single-statement routine that is already complete.
func (p *sqlParse) scanRoutineHeaderTail(after string, lineNo int) {
	u := " " + strings.ToUpper(after) + " "
	if strings.Contains(u, " BEGIN ") || strings.Contains(u, " BEGIN;") {
		p.top().bodyOpen = true
		return
	}
	if strings.ContainsRune(after, ';') {
		p.pop(lineNo)
	}
}

func (p *sqlParse) top() *sqlOpen {
	return p.stack[len(p.stack)-1]
}

func (p *sqlParse) push(n *tree.RawNode, routine bool) {
	p.top().raw.AddChild(n)
	p.stack = append(p.stack, &sqlOpen{raw: n, routine: routine})
}

func (p *sqlParse) pop(lineNo int) {
	top := p.top()
	top.raw.EndLine = lineNo
	p.stack = p.stack[:len(p.stack)-1]
}

// routineHeader scans the words after CREATE for PROCEDURE/FUNCTION/TRIGGER,
// stepping over OR REPLACE, DEFINER clauses, and IF NOT EXISTS. Returns the
// node kind, the routine name, and the unscanned remainder.
func routineHeader(text string) (kind, name, after string, ok bool) {
	rest := text
	for range [8]struct{}{} {
		var word string
		word, rest = cutWord(rest)
		if word == "" {
			return "", "", "", false
		}
		upper := strings.ToUpper(word)
		if k := sqlRoutineKinds[upper]; k != "" {
			name, rest = cutWord(rest)
			for strings.ToUpper(name) == "IF" || strings.ToUpper(name) == "NOT" || strings.ToUpper(name) == "EXISTS" {
				name, rest = cutWord(rest)
			}
			if i := strings.IndexByte(name, '('); i >= 0 {
				name = name[:i]
			}
			if name == "" {
				return "", "", "", false
			}
			return k, name, rest, true
		}
		switch {
		case upper == "OR" || upper == "REPLACE" || upper == "TEMPORARY" || upper == "DEFINER":
		case strings.ContainsAny(word, "=@"):
		default:
			return "", "", "", false
		}
	}
	return "", "", "", false
}

// cutWord splits off the first whitespace-delimited word, stopping at a
// terminator so "END;" yields "END".
func cutWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := 0
	for i < len(s) && s[i] != ' ' && s[i] != '\t' && s[i] != ';' {
		i++
	}
	return s[:i], s[i:]
}

// clean blanks string literals and comments and drops identifier quoting,
// leaving only text the keyword scan should see. Single-quoted literals are
// emptied; backtick, double-quote, and bracket identifier marks are removed
// with their contents kept.
func (p *sqlParse) clean(line string) string {
	var b strings.Builder
	i := 0
	for i < len(line) {
		c := line[i]
		if p.inBlockComment {
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				p.inBlockComment = false
				i += 2
				continue
			}
			i++
			continue
		}
		switch c {
		case '\'':
			b.WriteByte(' ')
			i++
			for i < len(line) {
				if line[i] == '\'' {
					if i+1 < len(line) && line[i+1] == '\'' {
						i += 2 // escaped quote inside the literal
						continue
					}
					i++
					break
				}
				i++
			}
		case '`', '"', '[', ']':
			i++
		case '-':
			if i+1 < len(line) && line[i+1] == '-' {
				return b.String()
			}
			b.WriteByte(c)
			i++
		case '#':
			return b.String()
		case '/':
			if i+1 < len(line) && line[i+1] == '*' {
				p.inBlockComment = true
				i += 2
				continue
			}
			b.WriteByte(c)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

package sqlparse

import "strings"

// scope holds the table occurrences visible in one query block. Lookups fall
// back to the enclosing block so correlated references resolve.
type scope struct {
	parent *scope
	// tables are table ids declared in this block, in declaration order.
	tables []string
	// names maps upper-cased aliases and table names to table ids.
	names map[string]string
	// derived holds upper-cased aliases of inline views and CTE references;
	// their columns are not physical and never resolve.
	derived map[string]bool
}

func newScope(parent *scope) *scope {
	return &scope{
		parent:  parent,
		names:   make(map[string]string),
		derived: make(map[string]bool),
	}
}

func (s *scope) add(id, name, alias string) {
	s.tables = append(s.tables, id)
	if alias != "" {
		s.names[strings.ToUpper(alias)] = id
	}
	key := strings.ToUpper(name)
	if _, taken := s.names[key]; !taken {
		s.names[key] = id
	}
}

func (s *scope) addDerived(alias string) {
	if alias != "" {
		s.derived[strings.ToUpper(alias)] = true
	}
}

// resolveQualified finds the table id for a qualifier, searching outwards.
func (s *scope) resolveQualified(qualifier string) (string, bool) {
	key := strings.ToUpper(qualifier)
	for cur := s; cur != nil; cur = cur.parent {
		if id, ok := cur.names[key]; ok {
			return id, true
		}
		if cur.derived[key] {
			return "", false
		}
	}
	return "", false
}

// resolveUnqualified applies single-candidate inference: an unqualified
// column belongs to the only table of the innermost block that has any.
func (s *scope) resolveUnqualified() (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if len(cur.tables) == 0 && len(cur.derived) == 0 {
			continue
		}
		if len(cur.tables) == 1 && len(cur.derived) == 0 {
			return cur.tables[0], true
		}
		return "", false
	}
	return "", false
}

// pseudoColumns are Oracle names that look like columns but are not.
var pseudoColumns = map[string]bool{
	"ROWNUM":             true,
	"ROWID":              true,
	"LEVEL":              true,
	"SYSDATE":            true,
	"SYSTIMESTAMP":       true,
	"CURRENT_DATE":       true,
	"CURRENT_TIMESTAMP":  true,
	"LOCALTIMESTAMP":     true,
	"USER":               true,
	"UID":                true,
	"TRUE":               true,
	"FALSE":              true,
	"ORA_ROWSCN":         true,
	"CONNECT_BY_ISLEAF":  true,
	"CONNECT_BY_ISCYCLE": true,
	"NEXTVAL":            true,
	"CURRVAL":            true,
}

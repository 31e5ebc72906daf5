package sqlparse

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse builds the structural model of a single supported statement.
// Unsupported shapes are rejected by Classify before any parsing happens.
func Parse(sql string) (*ParsedSQL, error) {
	stmtType, err := Classify(sql)
	if err != nil {
		return nil, err
	}

	p := newParser(statementTokens(Tokenize(sql)))
	p.out.StatementType = stmtType

	switch stmtType {
	case StatementSelect:
		p.parseQuery(nil)
	case StatementUpdate:
		p.parseUpdate()
	case StatementDelete:
		p.parseDelete()
	case StatementInsert:
		p.parseInsert()
	}

	if len(p.out.Tables) == 0 {
		return nil, ErrNoTables
	}
	if err := p.out.validate(); err != nil {
		return nil, err
	}
	return p.out, nil
}

type columnKey struct {
	tableID string
	name    string
	ctype   ConditionType
}

type parser struct {
	tokens []Token
	pos    int
	out    *ParsedSQL

	ctes    map[string]bool
	columns map[columnKey]string
}

func newParser(tokens []Token) *parser {
	return &parser{
		tokens:  tokens,
		out:     &ParsedSQL{},
		ctes:    make(map[string]bool),
		columns: make(map[columnKey]string),
	}
}

func (p *parser) cur() Token {
	return p.peekAt(0)
}

func (p *parser) peekAt(n int) Token {
	i := p.pos + n
	if i < 0 || i >= len(p.tokens) {
		return Token{Type: TOKEN_EOF}
	}
	return p.tokens[i]
}

func (p *parser) at(tt TokenType) bool {
	return p.cur().Type == tt
}

func (p *parser) atEOF() bool {
	return p.pos >= len(p.tokens)
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) accept(tt TokenType) bool {
	if p.at(tt) {
		p.advance()
		return true
	}
	return false
}

// acceptWord consumes a non-reserved word such as SIBLINGS or ONLY.
func (p *parser) acceptWord(word string) bool {
	tok := p.cur()
	if tok.Type == TOKEN_IDENT && !tok.Quoted && strings.EqualFold(tok.Literal, word) {
		p.advance()
		return true
	}
	return false
}

// atQueryStart reports whether the cursor is on "(" opening a subquery.
func (p *parser) atQueryStart() bool {
	if !p.at(TOKEN_LPAREN) {
		return false
	}
	for i := 1; ; i++ {
		switch p.peekAt(i).Type {
		case TOKEN_LPAREN:
			continue
		case TOKEN_SELECT, TOKEN_WITH:
			return true
		default:
			return false
		}
	}
}

// skipParens consumes a balanced parenthesised group starting at "(".
func (p *parser) skipParens() {
	if !p.accept(TOKEN_LPAREN) {
		return
	}
	depth := 1
	for !p.atEOF() && depth > 0 {
		switch p.cur().Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		}
		p.advance()
	}
}

// skipClause consumes tokens until stop matches at depth 0 or an unmatched
// ")" is reached. Subqueries met on the way are parsed in the given scope.
func (p *parser) skipClause(s *scope, stop func(Token) bool) {
	depth := 0
	for !p.atEOF() {
		tok := p.cur()
		if depth == 0 && (tok.Type == TOKEN_RPAREN || stop(tok)) {
			return
		}
		if p.atQueryStart() {
			p.parseSubquery(s)
			continue
		}
		switch tok.Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		}
		p.advance()
	}
}

// parseSubquery parses "( query )" as a child block of s.
func (p *parser) parseSubquery(s *scope) {
	p.advance() // (
	p.parseQuery(s)
	p.accept(TOKEN_RPAREN)
}

// isClauseBoundary reports tokens that end a clause of a query block.
func isClauseBoundary(tok Token) bool {
	switch tok.Type {
	case TOKEN_EOF, TOKEN_WHERE, TOKEN_GROUP, TOKEN_HAVING, TOKEN_ORDER,
		TOKEN_UNION, TOKEN_INTERSECT, TOKEN_MINUS_SET, TOKEN_EXCEPT,
		TOKEN_CONNECT, TOKEN_START, TOKEN_FETCH, TOKEN_OFFSET, TOKEN_FOR,
		TOKEN_LIMIT, TOKEN_WINDOW, TOKEN_MODEL, TOKEN_RETURNING:
		return true
	}
	return false
}

func isSetOperator(tt TokenType) bool {
	switch tt {
	case TOKEN_UNION, TOKEN_INTERSECT, TOKEN_MINUS_SET, TOKEN_EXCEPT:
		return true
	}
	return false
}

// parseQuery parses [WITH ...] block {set-op block} [ORDER BY ...] and any
// trailing row-limiting or locking clauses.
func (p *parser) parseQuery(parent *scope) {
	if p.at(TOKEN_WITH) {
		p.parseWith(parent)
	}

	blockScope := p.parseSelectCore(parent)
	compound := false
	for isSetOperator(p.cur().Type) {
		compound = true
		p.advance()
		p.accept(TOKEN_ALL)
		p.accept(TOKEN_DISTINCT)
		p.parseSelectCore(parent)
	}

	if p.at(TOKEN_ORDER) {
		p.advance()
		p.acceptWord("SIBLINGS")
		p.accept(TOKEN_BY)
		if compound || blockScope == nil {
			// Compound ORDER BY names output columns, not table columns.
			p.skipClause(parent, func(tok Token) bool { return isClauseBoundary(tok) && tok.Type != TOKEN_ORDER })
		} else {
			p.parseOrderBy(blockScope)
		}
	}

	p.skipClause(parent, func(Token) bool { return false })
}

// parseWith registers CTE names and parses their bodies.
func (p *parser) parseWith(parent *scope) {
	p.advance() // WITH
	for !p.atEOF() {
		name := p.cur()
		if name.Type != TOKEN_IDENT {
			return
		}
		p.ctes[strings.ToUpper(name.Literal)] = true
		p.advance()
		if p.at(TOKEN_LPAREN) {
			p.skipParens() // column aliases
		}
		if !p.accept(TOKEN_AS) {
			return
		}
		p.acceptWord("MATERIALIZED")
		if p.atQueryStart() {
			p.parseSubquery(parent)
		} else if p.at(TOKEN_LPAREN) {
			p.skipParens()
		}
		// SEARCH / CYCLE clauses of recursive CTEs.
		for !p.atEOF() && !p.at(TOKEN_COMMA) && !p.at(TOKEN_SELECT) && !p.at(TOKEN_LPAREN) {
			p.advance()
		}
		if !p.accept(TOKEN_COMMA) {
			return
		}
	}
}

// parseSelectCore parses one SELECT block and returns its scope, or nil for a
// parenthesised compound.
func (p *parser) parseSelectCore(parent *scope) *scope {
	if p.at(TOKEN_LPAREN) {
		p.advance()
		p.parseQuery(parent)
		p.accept(TOKEN_RPAREN)
		return nil
	}
	if !p.accept(TOKEN_SELECT) {
		return nil
	}

	s := newScope(parent)

	// The select list may reference FROM tables, so its subqueries are
	// parsed once the FROM clause has been read.
	selectStart := p.pos
	p.skipBalanced(func(tok Token) bool {
		return tok.Type == TOKEN_FROM || tok.Type == TOKEN_EOF || isSetOperator(tok.Type)
	})
	selectEnd := p.pos

	if p.accept(TOKEN_FROM) {
		p.parseFromList(s)
	}

	for {
		switch p.cur().Type {
		case TOKEN_WHERE:
			p.advance()
			p.parseCondition(s, condContext{})
		case TOKEN_START:
			p.advance()
			p.accept(TOKEN_WITH)
			p.parseCondition(s, condContext{})
		case TOKEN_CONNECT:
			p.advance()
			p.accept(TOKEN_BY)
			p.acceptWord("NOCYCLE")
			p.skipClause(s, isClauseBoundary)
		case TOKEN_GROUP, TOKEN_HAVING, TOKEN_WINDOW, TOKEN_MODEL:
			p.advance()
			p.skipClause(s, func(tok Token) bool {
				return isClauseBoundary(tok) && tok.Type != TOKEN_GROUP
			})
		case TOKEN_EOF, TOKEN_RPAREN, TOKEN_ORDER, TOKEN_UNION, TOKEN_INTERSECT,
			TOKEN_MINUS_SET, TOKEN_EXCEPT, TOKEN_FETCH, TOKEN_OFFSET, TOKEN_FOR,
			TOKEN_LIMIT, TOKEN_RETURNING:
			p.parseRange(s, selectStart, selectEnd)
			return s
		default:
			p.advance()
		}
	}
}

// parseRange parses the subqueries inside tokens[start:end] in scope s and
// restores the cursor afterwards.
func (p *parser) parseRange(s *scope, start, end int) {
	saved := p.pos
	p.pos = start
	for p.pos < end && !p.atEOF() {
		if p.atQueryStart() {
			p.parseSubquery(s)
			continue
		}
		p.advance()
	}
	p.pos = saved
}

// skipBalanced consumes tokens until stop matches at depth 0 or an unmatched
// ")" is reached, without parsing anything.
func (p *parser) skipBalanced(stop func(Token) bool) {
	depth := 0
	for !p.atEOF() {
		tok := p.cur()
		if depth == 0 && (tok.Type == TOKEN_RPAREN || stop(tok)) {
			return
		}
		switch tok.Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		}
		p.advance()
	}
}

// parseOrderBy records ORDER BY columns with their direction.
func (p *parser) parseOrderBy(s *scope) {
	for !p.atEOF() {
		if p.at(TOKEN_RPAREN) || (isClauseBoundary(p.cur()) && !p.at(TOKEN_ORDER)) {
			return
		}
		start := p.pos
		op := p.parseOperand(s)
		if p.pos == start {
			p.advance()
			continue
		}
		dir := OpAsc
		if p.accept(TOKEN_DESC) {
			dir = OpDesc
		} else {
			p.accept(TOKEN_ASC)
		}
		if p.acceptWord("NULLS") {
			if !p.acceptWord("FIRST") {
				p.acceptWord("LAST")
			}
		}
		if op.kind == operandColumn && op.function == "" {
			p.addColumn(op.tableID, op.name, Condition{Type: ConditionOrderBy, Operator: dir})
		}
		if !p.accept(TOKEN_COMMA) {
			return
		}
	}
}

func (p *parser) parseUpdate() {
	p.advance() // UPDATE
	s := newScope(nil)
	p.parseTableRef(s)

	if p.accept(TOKEN_SET) {
		p.skipClause(s, func(tok Token) bool { return tok.Type == TOKEN_WHERE || isClauseBoundary(tok) })
	}
	if p.accept(TOKEN_WHERE) {
		p.parseCondition(s, condContext{})
	}
	p.skipClause(s, func(Token) bool { return false })
}

func (p *parser) parseDelete() {
	p.advance() // DELETE
	p.accept(TOKEN_FROM)
	s := newScope(nil)
	p.parseTableRef(s)

	if p.accept(TOKEN_WHERE) {
		p.parseCondition(s, condContext{})
	}
	p.skipClause(s, func(Token) bool { return false })
}

func (p *parser) parseInsert() {
	p.advance() // INSERT
	if p.accept(TOKEN_INTO) {
		if name, _, ok := p.parseObjectName(); ok {
			p.out.Target = name
		}
	}

	for !p.atEOF() {
		switch {
		case p.at(TOKEN_SELECT), p.at(TOKEN_WITH), p.atQueryStart():
			p.parseQuery(nil)
			return
		case p.at(TOKEN_LPAREN):
			p.skipParens()
		default:
			p.advance()
		}
	}
}

// parseObjectName reads [schema.]name[@dblink] and returns name and schema.
func (p *parser) parseObjectName() (name, schema string, ok bool) {
	if !p.at(TOKEN_IDENT) {
		return "", "", false
	}
	name = p.cur().Literal
	p.advance()
	if p.at(TOKEN_DOT) && p.peekAt(1).Type == TOKEN_IDENT {
		p.advance()
		schema = name
		name = p.cur().Literal
		p.advance()
	}
	if p.accept(TOKEN_AT) {
		for p.at(TOKEN_IDENT) || p.at(TOKEN_DOT) {
			p.advance()
		}
	}
	return name, schema, true
}

func (p *parser) addTable(name, schema, alias string) string {
	id := "t" + strconv.Itoa(len(p.out.Tables)+1)
	p.out.Tables = append(p.out.Tables, Table{
		ID:     id,
		Name:   name,
		Schema: schema,
		Alias:  alias,
	})
	return id
}

// addColumn records a column use and returns its id. The first use of a
// (table, column, condition type) triple wins.
func (p *parser) addColumn(tableID, name string, cond Condition) string {
	key := columnKey{tableID: tableID, name: strings.ToUpper(name), ctype: cond.Type}
	if id, ok := p.columns[key]; ok {
		return id
	}

	tableName := ""
	if t, ok := p.out.Table(tableID); ok {
		tableName = t.Name
	}
	id := "c" + strconv.Itoa(len(p.out.Columns)+1)
	p.out.Columns = append(p.out.Columns, Column{
		ID:        id,
		TableID:   tableID,
		TableName: tableName,
		Name:      name,
		Condition: cond,
	})
	p.columns[key] = id
	return id
}

func (p *parser) addJoin(j Join) {
	for _, existing := range p.out.Joins {
		if existing.SourceColumnID == j.SourceColumnID && existing.TargetColumnID == j.TargetColumnID &&
			existing.SourceTableID == j.SourceTableID && existing.TargetTableID == j.TargetTableID {
			return
		}
	}
	j.ID = "j" + strconv.Itoa(len(p.out.Joins)+1)
	p.out.Joins = append(p.out.Joins, j)
}

func (p *parser) markOuter(tableID string) {
	if t, ok := p.out.Table(tableID); ok {
		t.IsOuterJoinTarget = true
	}
}

// validate checks that every id reference in the model resolves.
func (p *ParsedSQL) validate() error {
	tables := p.TableIndex()
	columns := make(map[string]string, len(p.Columns))
	for _, c := range p.Columns {
		if _, ok := tables[c.TableID]; !ok {
			return fmt.Errorf("%w: column %s references unknown table %s", ErrInconsistent, c.ID, c.TableID)
		}
		if c.Condition.Type == ConditionNone {
			return fmt.Errorf("%w: column %s has no condition", ErrInconsistent, c.ID)
		}
		columns[c.ID] = c.TableID
	}
	for _, j := range p.Joins {
		if _, ok := tables[j.SourceTableID]; !ok {
			return fmt.Errorf("%w: join %s references unknown table %s", ErrInconsistent, j.ID, j.SourceTableID)
		}
		if _, ok := tables[j.TargetTableID]; !ok {
			return fmt.Errorf("%w: join %s references unknown table %s", ErrInconsistent, j.ID, j.TargetTableID)
		}
		if j.SourceColumnID != "" && columns[j.SourceColumnID] != j.SourceTableID {
			return fmt.Errorf("%w: join %s source column %s is not on table %s", ErrInconsistent, j.ID, j.SourceColumnID, j.SourceTableID)
		}
		if j.TargetColumnID != "" && columns[j.TargetColumnID] != j.TargetTableID {
			return fmt.Errorf("%w: join %s target column %s is not on table %s", ErrInconsistent, j.ID, j.TargetColumnID, j.TargetTableID)
		}
	}
	return nil
}

package sqlparse

import "strings"

type joinKind int

const (
	joinInner joinKind = iota
	joinLeft
	joinRight
	joinFull
)

// joinClause tracks one explicit JOIN while its ON condition is parsed.
type joinClause struct {
	kind joinKind
	// newTables are the table ids introduced by the right-hand side.
	newTables map[string]bool
	// referencedOld are tables of the left-hand side referenced in ON.
	referencedOld []string
}

func (jc *joinClause) reference(id string) {
	for _, existing := range jc.referencedOld {
		if existing == id {
			return
		}
	}
	jc.referencedOld = append(jc.referencedOld, id)
}

// parseFromList parses a FROM clause and returns the table ids it declared.
func (p *parser) parseFromList(s *scope) []string {
	declared := p.parseTableRef(s)
	for {
		switch p.cur().Type {
		case TOKEN_COMMA:
			p.advance()
			declared = append(declared, p.parseTableRef(s)...)
		case TOKEN_JOIN, TOKEN_INNER, TOKEN_LEFT, TOKEN_RIGHT, TOKEN_FULL,
			TOKEN_CROSS, TOKEN_NATURAL, TOKEN_OUTER_KW:
			declared = p.parseJoin(s, declared)
		default:
			return declared
		}
	}
}

// parseJoin parses one join operator, its right-hand table reference and
// its ON or USING clause. prior holds the tables declared so far.
func (p *parser) parseJoin(s *scope, prior []string) []string {
	kind := joinInner
	p.accept(TOKEN_NATURAL)

	switch p.cur().Type {
	case TOKEN_INNER:
		p.advance()
	case TOKEN_LEFT:
		p.advance()
		p.accept(TOKEN_OUTER_KW)
		kind = joinLeft
	case TOKEN_RIGHT:
		p.advance()
		p.accept(TOKEN_OUTER_KW)
		kind = joinRight
	case TOKEN_FULL:
		p.advance()
		p.accept(TOKEN_OUTER_KW)
		kind = joinFull
	case TOKEN_CROSS:
		p.advance()
		if p.accept(TOKEN_APPLY) {
			return append(prior, p.parseTableRef(s)...)
		}
	case TOKEN_OUTER_KW:
		// OUTER APPLY behaves like a lateral left join without a condition.
		p.advance()
		p.accept(TOKEN_APPLY)
		added := p.parseTableRef(s)
		for _, id := range added {
			p.markOuter(id)
		}
		return append(prior, added...)
	}
	if !p.accept(TOKEN_JOIN) {
		return prior
	}

	added := p.parseTableRef(s)
	p.skipPartitionBy(s)

	jc := &joinClause{kind: kind, newTables: make(map[string]bool, len(added))}
	for _, id := range added {
		jc.newTables[id] = true
	}

	switch {
	case p.accept(TOKEN_ON):
		p.parseCondition(s, condContext{join: jc})
	case p.accept(TOKEN_USING):
		p.parseUsing(jc, prior, added)
	}

	switch kind {
	case joinLeft:
		for _, id := range added {
			p.markOuter(id)
		}
	case joinRight:
		p.markOld(jc, prior)
	case joinFull:
		for _, id := range added {
			p.markOuter(id)
		}
		p.markOld(jc, prior)
	}
	return append(prior, added...)
}

// markOld marks the preserved-side tables of a RIGHT or FULL join as outer
// targets: the ones referenced in ON, or all of them when none were.
func (p *parser) markOld(jc *joinClause, prior []string) {
	targets := jc.referencedOld
	if len(targets) == 0 {
		targets = prior
	}
	for _, id := range targets {
		p.markOuter(id)
	}
}

// parseUsing pairs each USING column between the most recent prior table and
// the first table of the right-hand side.
func (p *parser) parseUsing(jc *joinClause, prior, added []string) {
	if !p.accept(TOKEN_LPAREN) {
		return
	}
	var names []string
	for !p.atEOF() && !p.at(TOKEN_RPAREN) {
		if p.at(TOKEN_IDENT) {
			names = append(names, p.cur().Literal)
		}
		p.advance()
	}
	p.accept(TOKEN_RPAREN)

	if len(prior) == 0 || len(added) == 0 {
		return
	}
	oldID, newID := prior[len(prior)-1], added[0]
	for _, name := range names {
		left := operand{kind: operandColumn, tableID: oldID, name: name}
		right := operand{kind: operandColumn, tableID: newID, name: name}
		p.recordJoin(condContext{join: jc}, left, OpEqual, right)
	}
}

// parseTableRef parses one table reference and returns the physical table
// ids it introduced. Inline views and CTE references introduce none.
func (p *parser) parseTableRef(s *scope) []string {
	p.accept(TOKEN_LATERAL)

	switch {
	case p.atQueryStart():
		p.parseSubquery(s)
		s.addDerived(p.parseAlias())
		p.skipPivot(s)
		return nil
	case p.at(TOKEN_LPAREN):
		// Parenthesised join group.
		p.advance()
		ids := p.parseFromList(s)
		p.accept(TOKEN_RPAREN)
		p.parseAlias()
		return ids
	case p.atWord("ONLY") && p.peekAt(1).Type == TOKEN_LPAREN:
		p.advance()
		p.advance()
		ids := p.parseTableRef(s)
		p.accept(TOKEN_RPAREN)
		return ids
	}

	name, schema, ok := p.parseObjectName()
	if !ok {
		return nil
	}
	if p.at(TOKEN_LPAREN) {
		// TABLE(...), XMLTABLE(...) and other table functions.
		p.skipParensIn(s)
		s.addDerived(p.parseAlias())
		return nil
	}
	p.skipTableModifiers(s)
	alias := p.parseAlias()

	if schema == "" && p.ctes[strings.ToUpper(name)] {
		if alias == "" {
			alias = name
		}
		s.addDerived(alias)
		p.skipPivot(s)
		return nil
	}

	id := p.addTable(name, schema, alias)
	s.add(id, name, alias)
	p.skipPivot(s)
	return []string{id}
}

// skipParensIn consumes a parenthesised group, parsing any subqueries inside
// it in scope s.
func (p *parser) skipParensIn(s *scope) {
	if !p.accept(TOKEN_LPAREN) {
		return
	}
	p.skipClause(s, func(Token) bool { return false })
	p.accept(TOKEN_RPAREN)
}

// parseAlias reads an optional [AS] alias.
func (p *parser) parseAlias() string {
	if p.accept(TOKEN_AS) {
		if p.at(TOKEN_IDENT) {
			alias := p.cur().Literal
			p.advance()
			return alias
		}
		return ""
	}
	if p.at(TOKEN_IDENT) {
		alias := p.cur().Literal
		p.advance()
		return alias
	}
	return ""
}

// skipTableModifiers skips PARTITION (...), SUBPARTITION (...), SAMPLE (...)
// and flashback AS OF clauses after a table name.
func (p *parser) skipTableModifiers(s *scope) {
	for {
		switch {
		case p.at(TOKEN_PARTITION), p.atWord("SUBPARTITION"):
			if p.peekAt(1).Type != TOKEN_LPAREN {
				return
			}
			p.advance()
			p.skipParens()
		case p.at(TOKEN_SAMPLE):
			p.advance()
			p.acceptWord("BLOCK")
			p.skipParens()
			if p.acceptWord("SEED") {
				p.skipParens()
			}
		case p.at(TOKEN_AS) && p.peekAt(1).Type == TOKEN_IDENT && strings.EqualFold(p.peekAt(1).Literal, "OF"):
			p.advance() // AS
			p.advance() // OF
			p.advance() // SCN | TIMESTAMP
			p.parseOperand(s)
		default:
			return
		}
	}
}

// skipPivot skips a PIVOT or UNPIVOT clause and its alias.
func (p *parser) skipPivot(s *scope) {
	if !p.at(TOKEN_PIVOT) && !p.at(TOKEN_UNPIVOT) {
		return
	}
	p.advance()
	p.acceptWord("XML")
	if p.acceptWord("INCLUDE") || p.acceptWord("EXCLUDE") {
		p.acceptWord("NULLS")
	}
	p.skipParensIn(s)
	s.addDerived(p.parseAlias())
}

// skipPartitionBy skips the PARTITION BY (...) of a partitioned outer join.
func (p *parser) skipPartitionBy(s *scope) {
	if !p.at(TOKEN_PARTITION) || p.peekAt(1).Type != TOKEN_BY {
		return
	}
	p.advance()
	p.advance()
	if p.at(TOKEN_LPAREN) {
		p.skipParensIn(s)
		return
	}
	p.parseOperand(s)
	for p.accept(TOKEN_COMMA) {
		p.parseOperand(s)
	}
}

func (p *parser) atWord(word string) bool {
	tok := p.cur()
	return tok.Type == TOKEN_IDENT && !tok.Quoted && strings.EqualFold(tok.Literal, word)
}

package sqlparse

import "strings"

type operandKind int

const (
	operandNone operandKind = iota
	operandColumn
	operandLiteral
	operandBind
	operandNull
	operandSubquery
	operandExpr
	// operandUnresolved is a column reference that could not be tied to a
	// physical table: a CTE or derived-table column, or an ambiguous name.
	operandUnresolved
)

// operand is the parser's view of one side of a predicate.
type operand struct {
	kind     operandKind
	tableID  string
	name     string
	function string
	// value is set for string literals.
	value string
	// outer is set when the operand carries the (+) marker.
	outer bool
}

// condContext carries the state of the condition being parsed.
type condContext struct {
	// join is set while parsing the ON clause of an explicit join.
	join   *joinClause
	negate bool
}

// parseCondition parses a boolean expression of AND/OR-combined predicates.
func (p *parser) parseCondition(s *scope, ctx condContext) {
	for !p.atEOF() {
		p.parseBoolTerm(s, ctx)
		if !p.accept(TOKEN_AND) && !p.accept(TOKEN_OR) {
			return
		}
	}
}

func (p *parser) parseBoolTerm(s *scope, ctx condContext) {
	for p.accept(TOKEN_NOT) {
		ctx.negate = !ctx.negate
	}

	switch {
	case p.at(TOKEN_EXISTS):
		p.advance()
		if p.atQueryStart() {
			p.parseSubquery(s)
		}
		return
	case p.at(TOKEN_LPAREN) && !p.atQueryStart() && p.isGroupedCondition():
		p.advance()
		p.parseCondition(s, ctx)
		p.skipBalanced(func(Token) bool { return false })
		p.accept(TOKEN_RPAREN)
		return
	}
	p.parsePredicate(s, ctx)
}

// isGroupedCondition decides whether the "(" under the cursor groups a
// condition or opens a row value such as (a, b) IN (...) or (x + 1) > 2.
func (p *parser) isGroupedCondition() bool {
	depth := 0
	for i := 0; ; i++ {
		tok := p.peekAt(i)
		switch tok.Type {
		case TOKEN_EOF:
			return true
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
			if depth == 0 {
				return !isPredicateOperator(p.peekAt(i + 1).Type)
			}
		}
	}
}

func isPredicateOperator(tt TokenType) bool {
	switch tt {
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE,
		TOKEN_IN, TOKEN_NOT, TOKEN_LIKE, TOKEN_BETWEEN, TOKEN_IS,
		TOKEN_PLUS, TOKEN_MINUS, TOKEN_STAR, TOKEN_SLASH, TOKEN_DPIPE:
		return true
	}
	return false
}

func (p *parser) parsePredicate(s *scope, ctx condContext) {
	start := p.pos
	left := p.parseOperand(s)

	negated := ctx.negate
	if p.accept(TOKEN_NOT) {
		negated = !negated
	}

	switch tt := p.cur().Type; tt {
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE:
		op := comparisonOperator(tt)
		p.advance()
		if !p.accept(TOKEN_ALL) && !p.acceptWord("ANY") {
			p.acceptWord("SOME")
		}
		right := p.parseOperand(s)
		p.record(ctx, left, negateOperator(op, negated), right)

	case TOKEN_LIKE:
		p.advance()
		right := p.parseOperand(s)
		if p.accept(TOKEN_ESCAPE) {
			p.parseOperand(s)
		}
		p.record(ctx, left, negateOperator(OpLike, negated), right)

	case TOKEN_IN:
		p.advance()
		if p.atQueryStart() {
			p.parseSubquery(s)
		} else {
			p.skipParensIn(s)
		}
		p.record(ctx, left, negateOperator(OpIn, negated), operand{kind: operandExpr})

	case TOKEN_BETWEEN:
		p.advance()
		p.parseOperand(s)
		p.accept(TOKEN_AND)
		p.parseOperand(s)
		p.record(ctx, left, negateOperator(OpBetween, negated), operand{kind: operandExpr})

	case TOKEN_IS:
		p.advance()
		if p.accept(TOKEN_NOT) {
			negated = !negated
		}
		if p.accept(TOKEN_NULL) {
			p.record(ctx, left, negateOperator(OpIsNull, negated), operand{kind: operandNull})
		} else {
			// IS [NOT] NAN, IS [NOT] EMPTY, IS OF TYPE (...).
			p.acceptWord("OF")
			p.acceptWord("TYPE")
			if p.at(TOKEN_LPAREN) {
				p.skipParens()
			} else if p.at(TOKEN_IDENT) {
				p.advance()
			}
		}
	}

	if p.pos == start {
		p.advance()
	}
}

func comparisonOperator(tt TokenType) string {
	switch tt {
	case TOKEN_EQ:
		return OpEqual
	case TOKEN_NE:
		return OpNotEqual
	case TOKEN_LT:
		return OpLess
	case TOKEN_GT:
		return OpGreater
	case TOKEN_LE:
		return OpLessEqual
	default:
		return OpGreaterEqual
	}
}

// negateOperator returns the operator equivalent to NOT (x op y).
func negateOperator(op string, negated bool) string {
	if !negated {
		return op
	}
	switch op {
	case OpEqual:
		return OpNotEqual
	case OpNotEqual:
		return OpEqual
	case OpLess:
		return OpGreaterEqual
	case OpGreaterEqual:
		return OpLess
	case OpGreater:
		return OpLessEqual
	case OpLessEqual:
		return OpGreater
	case OpLike:
		return OpNotLike
	case OpIn:
		return OpNotIn
	case OpBetween:
		return OpNotBetween
	case OpIsNull:
		return OpIsNotNull
	}
	return op
}

// mirrorOperator returns op with its operands swapped: a < b becomes b > a.
func mirrorOperator(op string) string {
	switch op {
	case OpLess:
		return OpGreater
	case OpGreater:
		return OpLess
	case OpLessEqual:
		return OpGreaterEqual
	case OpGreaterEqual:
		return OpLessEqual
	}
	return op
}

// record turns one predicate into column and join entries.
func (p *parser) record(ctx condContext, left operand, op string, right operand) {
	if left.kind != operandColumn && right.kind == operandColumn && isComparison(op) {
		left, right = right, left
		op = mirrorOperator(op)
	}
	if left.kind != operandColumn {
		return
	}

	if right.kind == operandColumn {
		if left.tableID == right.tableID {
			return
		}
		p.recordJoin(ctx, left, op, right)
		return
	}

	ctype := ConditionWhere
	if right.kind == operandUnresolved && isComparison(op) {
		// The other side is a column of a CTE or derived table: no Join can
		// be recorded, but the physical column is still looked up per row.
		ctype = ConditionJoin
	}
	cond := Condition{Type: ctype, Operator: op, Function: left.function}
	if right.kind == operandLiteral {
		cond.Value = right.value
	}
	p.addColumn(left.tableID, left.name, cond)
}

// recordJoin adds a join between two columns of different tables. The (+)
// marker decides direction first, then the explicit JOIN the predicate
// belongs to; plain WHERE equalities are inner joins in textual order.
func (p *parser) recordJoin(ctx condContext, left operand, op string, right operand) {
	source, target := left, right
	joinType := JoinInner

	switch {
	case right.outer && !left.outer:
		joinType = JoinLeftOuter
	case left.outer && !right.outer:
		source, target = right, left
		op = mirrorOperator(op)
		joinType = JoinRightOuter
	case ctx.join != nil:
		jc := ctx.join
		leftNew, rightNew := jc.newTables[left.tableID], jc.newTables[right.tableID]
		if leftNew == rightNew {
			break
		}
		if leftNew {
			source, target = right, left
			op = mirrorOperator(op)
		}
		jc.reference(source.tableID)
		switch jc.kind {
		case joinLeft, joinFull:
			joinType = JoinLeftOuter
		case joinRight:
			source, target = target, source
			op = mirrorOperator(op)
			joinType = JoinRightOuter
		}
	}

	if joinType.IsOuter() {
		p.markOuter(target.tableID)
	}
	sourceID := p.addColumn(source.tableID, source.name, Condition{Type: ConditionJoin, Operator: op, Function: source.function})
	targetID := p.addColumn(target.tableID, target.name, Condition{Type: ConditionJoin, Operator: op, Function: target.function})
	p.addJoin(Join{
		SourceTableID:  source.tableID,
		SourceColumnID: sourceID,
		TargetTableID:  target.tableID,
		TargetColumnID: targetID,
		JoinType:       joinType,
		Operator:       op,
	})
}

func isComparison(op string) bool {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpGreater, OpLessEqual, OpGreaterEqual:
		return true
	}
	return false
}

func isArithmetic(tt TokenType) bool {
	switch tt {
	case TOKEN_PLUS, TOKEN_MINUS, TOKEN_STAR, TOKEN_SLASH, TOKEN_DPIPE:
		return true
	}
	return false
}

// parseOperand parses a value expression. Arithmetic over a column keeps the
// column but records it as wrapped in an expression.
func (p *parser) parseOperand(s *scope) operand {
	op := p.parsePrimary(s)
	for isArithmetic(p.cur().Type) {
		p.advance()
		rhs := p.parsePrimary(s)
		switch {
		case op.kind == operandColumn:
		case rhs.kind == operandColumn:
			op = rhs
		default:
			op = operand{kind: operandExpr}
			continue
		}
		if op.function == "" {
			op.function = "EXPR"
		}
	}
	return op
}

var intervalWords = map[string]bool{
	"YEAR":   true,
	"MONTH":  true,
	"DAY":    true,
	"HOUR":   true,
	"MINUTE": true,
	"SECOND": true,
	"TO":     true,
}

func (p *parser) parsePrimary(s *scope) operand {
	tok := p.cur()
	switch tok.Type {
	case TOKEN_NUMBER:
		p.advance()
		return operand{kind: operandLiteral}
	case TOKEN_STRING:
		p.advance()
		return operand{kind: operandLiteral, value: tok.Literal}
	case TOKEN_BIND:
		p.advance()
		return operand{kind: operandBind}
	case TOKEN_NULL:
		p.advance()
		return operand{kind: operandNull}
	case TOKEN_PLUS, TOKEN_MINUS, TOKEN_PRIOR:
		p.advance()
		inner := p.parsePrimary(s)
		if tok.Type == TOKEN_PRIOR {
			return operand{kind: operandExpr}
		}
		return inner
	case TOKEN_STAR:
		p.advance()
		return operand{kind: operandExpr}
	case TOKEN_CASE:
		p.skipCase(s)
		return operand{kind: operandExpr}
	case TOKEN_LPAREN:
		if p.atQueryStart() {
			p.parseSubquery(s)
			return operand{kind: operandSubquery}
		}
		p.advance()
		inner := p.parseOperand(s)
		if !p.at(TOKEN_RPAREN) {
			inner = operand{kind: operandExpr}
			p.skipClause(s, func(Token) bool { return false })
		}
		p.accept(TOKEN_RPAREN)
		if p.accept(TOKEN_OUTER) {
			inner.outer = true
		}
		return inner
	case TOKEN_IDENT:
		return p.parseIdentOperand(s)
	}
	return operand{}
}

// parseIdentOperand parses a column reference, a function call or a typed
// literal such as DATE '2024-01-01'.
func (p *parser) parseIdentOperand(s *scope) operand {
	first := p.cur()
	upper := strings.ToUpper(first.Literal)

	if !first.Quoted && p.peekAt(1).Type == TOKEN_STRING {
		switch upper {
		case "DATE", "TIMESTAMP", "INTERVAL":
			p.advance()
			p.advance()
			for p.at(TOKEN_IDENT) && intervalWords[strings.ToUpper(p.cur().Literal)] {
				p.advance()
				if p.at(TOKEN_LPAREN) {
					p.skipParens()
				}
			}
			return operand{kind: operandLiteral}
		}
	}

	parts := []Token{first}
	p.advance()
	for p.at(TOKEN_DOT) && (p.peekAt(1).Type == TOKEN_IDENT || p.peekAt(1).Type == TOKEN_STAR) {
		p.advance()
		parts = append(parts, p.cur())
		p.advance()
	}

	if p.at(TOKEN_LPAREN) {
		name := strings.ToUpper(parts[len(parts)-1].Literal)
		arg := p.parseArgs(s)
		p.skipAnalyticClauses(s)
		if arg.kind != operandColumn {
			return operand{kind: operandExpr}
		}
		arg.function = name
		arg.outer = false
		return arg
	}

	if parts[len(parts)-1].Type == TOKEN_STAR {
		return operand{kind: operandExpr}
	}

	op := p.resolveColumn(s, parts)
	if p.accept(TOKEN_OUTER) && op.kind == operandColumn {
		op.outer = true
	}
	return op
}

// resolveColumn ties a possibly qualified column name to a table occurrence.
func (p *parser) resolveColumn(s *scope, parts []Token) operand {
	column := parts[len(parts)-1]
	if len(parts) == 1 && !column.Quoted && pseudoColumns[strings.ToUpper(column.Literal)] {
		return operand{kind: operandExpr}
	}
	if len(parts) > 1 && pseudoColumns[strings.ToUpper(column.Literal)] {
		// sequence.NEXTVAL and friends.
		return operand{kind: operandExpr}
	}

	var (
		tableID string
		ok      bool
	)
	if len(parts) == 1 {
		tableID, ok = s.resolveUnqualified()
	} else {
		tableID, ok = s.resolveQualified(parts[len(parts)-2].Literal)
	}
	if !ok {
		p.out.Unresolved++
		return operand{kind: operandUnresolved}
	}
	return operand{kind: operandColumn, tableID: tableID, name: column.Literal}
}

// parseArgs consumes a function argument list and returns the first column
// argument found, if any.
func (p *parser) parseArgs(s *scope) operand {
	p.advance() // (
	var found operand
	for !p.atEOF() && !p.at(TOKEN_RPAREN) {
		if !p.accept(TOKEN_DISTINCT) {
			p.accept(TOKEN_ALL)
		}
		// EXTRACT(YEAR FROM col) and TRIM(LEADING 'x' FROM col).
		if p.at(TOKEN_IDENT) && (p.peekAt(1).Type == TOKEN_FROM || p.peekAt(1).Type == TOKEN_STRING) {
			switch strings.ToUpper(p.cur().Literal) {
			case "YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "SECOND", "LEADING", "TRAILING", "BOTH",
				"TIMEZONE_HOUR", "TIMEZONE_MINUTE", "TIMEZONE_REGION", "TIMEZONE_ABBR":
				p.advance()
				continue
			}
		}

		start := p.pos
		arg := p.parseOperand(s)
		if found.kind != operandColumn && arg.kind == operandColumn {
			found = arg
		}
		switch {
		case p.accept(TOKEN_COMMA):
		case p.accept(TOKEN_AS):
			// CAST(x AS type[(n)]).
			if p.at(TOKEN_IDENT) {
				p.advance()
			}
			for p.at(TOKEN_IDENT) || p.at(TOKEN_LPAREN) {
				if p.at(TOKEN_LPAREN) {
					p.skipParens()
					continue
				}
				p.advance()
			}
		case p.at(TOKEN_FROM), p.at(TOKEN_ORDER), p.at(TOKEN_BY), p.at(TOKEN_USING),
			p.at(TOKEN_IN), p.at(TOKEN_ON):
			p.advance()
		case p.pos == start:
			if p.at(TOKEN_LPAREN) {
				p.skipParensIn(s)
			} else {
				p.advance()
			}
		}
	}
	p.accept(TOKEN_RPAREN)
	return found
}

// skipAnalyticClauses skips OVER (...), KEEP (...) and WITHIN GROUP (...)
// after a function call.
func (p *parser) skipAnalyticClauses(s *scope) {
	for {
		switch {
		case p.atWord("OVER"):
			p.advance()
			if p.at(TOKEN_LPAREN) {
				p.skipParensIn(s)
			} else if p.at(TOKEN_IDENT) {
				p.advance()
			}
		case p.atWord("KEEP"):
			p.advance()
			p.skipParensIn(s)
		case p.atWord("WITHIN") && p.peekAt(1).Type == TOKEN_GROUP:
			p.advance()
			p.advance()
			p.skipParensIn(s)
		case p.atWord("RESPECT"), p.atWord("IGNORE"):
			p.advance()
			p.acceptWord("NULLS")
		default:
			return
		}
	}
}

// skipCase consumes a CASE ... END expression, parsing nested subqueries.
func (p *parser) skipCase(s *scope) {
	p.advance() // CASE
	depth := 1
	for !p.atEOF() && depth > 0 {
		switch {
		case p.atQueryStart():
			p.parseSubquery(s)
			continue
		case p.at(TOKEN_CASE):
			depth++
		case p.at(TOKEN_END):
			depth--
		}
		p.advance()
	}
}

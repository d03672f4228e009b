// Package sqlparse implements the recursive-descent parser for the
// supported SELECT subset, and the classifier that decides whether a query
// is in-subset or must be delegated to the external engine (spec.md §4.9).
package sqlparse

import (
	"strconv"
	"strings"

	"github.com/sqlstreamdb/sqlstream/internal/herr"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// Parser holds tokenizer state for one query: a flat token slice plus a
// cursor, consume/current/peek helpers.
type Parser struct {
	tokens []string
	pos    int
	sql    string
}

// New builds a Parser over sql.
func New(sql string) *Parser {
	return &Parser{tokens: tokenize(sql), sql: sql}
}

// Parse parses a full SELECT statement.
func Parse(sql string) (*sqlast.SelectStatement, error) {
	return New(sql).Parse()
}

func (p *Parser) current() (string, bool) {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos], true
	}
	return "", false
}

func (p *Parser) currentUpper() string {
	t, ok := p.current()
	if !ok {
		return ""
	}
	return strings.ToUpper(t)
}

func (p *Parser) peek(offset int) (string, bool) {
	i := p.pos + offset
	if i < len(p.tokens) {
		return p.tokens[i], true
	}
	return "", false
}

func (p *Parser) consume(expected string) (string, error) {
	tok, ok := p.current()
	if !ok {
		return "", herr.New(herr.ParseError, "unexpected end of query %q: expected %q", p.sql, expected)
	}
	if expected != "" && !strings.EqualFold(tok, expected) {
		return "", herr.New(herr.ParseError, "expected %q but got %q at position %d in %q", expected, tok, p.pos, p.sql)
	}
	p.pos++
	return tok, nil
}

func (p *Parser) consumeAny() (string, error) {
	return p.consume("")
}

// Parse parses the full SELECT statement grammar from spec.md §4.9.
func (p *Parser) Parse() (*sqlast.SelectStatement, error) {
	if _, err := p.consume("SELECT"); err != nil {
		return nil, err
	}

	stmt := &sqlast.SelectStatement{}
	if err := p.parseColumns(stmt); err != nil {
		return nil, err
	}

	if _, err := p.consume("FROM"); err != nil {
		return nil, err
	}
	source, err := p.consumeAny()
	if err != nil {
		return nil, err
	}
	stmt.Source = source

	if j := p.currentUpper(); j == "JOIN" || j == "INNER" || j == "LEFT" || j == "RIGHT" {
		if err := p.parseJoin(stmt); err != nil {
			return nil, err
		}
	}

	if p.currentUpper() == "WHERE" {
		if err := p.parseWhere(stmt); err != nil {
			return nil, err
		}
	}

	if p.currentUpper() == "GROUP" {
		if err := p.parseGroupBy(stmt); err != nil {
			return nil, err
		}
	}

	if p.currentUpper() == "ORDER" {
		if err := p.parseOrderBy(stmt); err != nil {
			return nil, err
		}
	}

	if p.currentUpper() == "LIMIT" {
		if err := p.parseLimit(stmt); err != nil {
			return nil, err
		}
	}

	if _, ok := p.current(); ok {
		tok, _ := p.current()
		return nil, herr.New(herr.ParseError, "unexpected trailing token %q in %q", tok, p.sql)
	}

	return stmt, nil
}

var aggFuncs = map[string]sqlast.AggregateFunc{
	"COUNT": sqlast.Count, "SUM": sqlast.Sum, "AVG": sqlast.Avg, "MIN": sqlast.Min, "MAX": sqlast.Max,
}

func (p *Parser) parseColumns(stmt *sqlast.SelectStatement) error {
	if tok, ok := p.current(); ok && tok == "*" {
		p.pos++
		stmt.Star = true
		stmt.Columns = []string{"*"}
		return nil
	}
	for {
		tok, err := p.consumeAny()
		if err != nil {
			return err
		}
		if fn, ok := aggFuncs[strings.ToUpper(tok)]; ok {
			if _, err := p.consume("("); err != nil {
				return err
			}
			col, err := p.consumeAny()
			if err != nil {
				return err
			}
			if _, err := p.consume(")"); err != nil {
				return err
			}
			alias := ""
			if strings.EqualFold(p.currentUpper(), "AS") {
				p.pos++
				a, err := p.consumeAny()
				if err != nil {
					return err
				}
				alias = a
			}
			agg := sqlast.Aggregate{Func: fn, Column: col, Alias: alias}
			stmt.Aggregates = append(stmt.Aggregates, agg)
			stmt.Columns = append(stmt.Columns, agg.OutputName())
		} else {
			stmt.Columns = append(stmt.Columns, unquote(tok))
		}
		if tok, ok := p.current(); ok && tok == "," {
			p.pos++
			continue
		}
		break
	}
	return nil
}

func (p *Parser) parseJoin(stmt *sqlast.SelectStatement) error {
	jt := sqlast.InnerJoin
	switch p.currentUpper() {
	case "INNER":
		p.pos++
	case "LEFT":
		jt = sqlast.LeftJoin
		p.pos++
	case "RIGHT":
		jt = sqlast.RightJoin
		p.pos++
	}
	if _, err := p.consume("JOIN"); err != nil {
		return err
	}
	right, err := p.consumeAny()
	if err != nil {
		return err
	}
	if _, err := p.consume("ON"); err != nil {
		return err
	}
	leftKey, err := p.consumeAny()
	if err != nil {
		return err
	}
	if _, err := p.consume("="); err != nil {
		return err
	}
	rightKey, err := p.consumeAny()
	if err != nil {
		return err
	}
	stmt.Join = &sqlast.Join{RightSource: right, Type: jt, LeftKey: leftKey, RightKey: rightKey}
	return nil
}

var validOperators = map[string]sqlast.Operator{
	"=": sqlast.Eq, ">": sqlast.Gt, "<": sqlast.Lt, ">=": sqlast.Ge, "<=": sqlast.Le, "!=": sqlast.Ne, "<>": sqlast.Ne,
}

func (p *Parser) parseWhere(stmt *sqlast.SelectStatement) error {
	if _, err := p.consume("WHERE"); err != nil {
		return err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return err
	}
	stmt.Where = append(stmt.Where, cond)
	for strings.EqualFold(p.currentUpper(), "AND") {
		p.pos++
		cond, err := p.parseCondition()
		if err != nil {
			return err
		}
		stmt.Where = append(stmt.Where, cond)
	}
	return nil
}

func (p *Parser) parseCondition() (sqlast.Condition, error) {
	col, err := p.consumeAny()
	if err != nil {
		return sqlast.Condition{}, err
	}
	opTok, err := p.consumeAny()
	if err != nil {
		return sqlast.Condition{}, err
	}
	op, ok := validOperators[opTok]
	if !ok {
		return sqlast.Condition{}, herr.New(herr.ParseError, "invalid operator %q in %q", opTok, p.sql)
	}
	valTok, err := p.consumeAny()
	if err != nil {
		return sqlast.Condition{}, err
	}
	return sqlast.Condition{Column: col, Operator: op, Literal: parseValue(valTok)}, nil
}

func (p *Parser) parseGroupBy(stmt *sqlast.SelectStatement) error {
	if _, err := p.consume("GROUP"); err != nil {
		return err
	}
	if _, err := p.consume("BY"); err != nil {
		return err
	}
	for {
		col, err := p.consumeAny()
		if err != nil {
			return err
		}
		stmt.GroupBy = append(stmt.GroupBy, col)
		if tok, ok := p.current(); ok && tok == "," {
			p.pos++
			continue
		}
		break
	}
	return nil
}

func (p *Parser) parseOrderBy(stmt *sqlast.SelectStatement) error {
	if _, err := p.consume("ORDER"); err != nil {
		return err
	}
	if _, err := p.consume("BY"); err != nil {
		return err
	}
	for {
		col, err := p.consumeAny()
		if err != nil {
			return err
		}
		dir := sqlast.Asc
		if u := p.currentUpper(); u == "ASC" || u == "DESC" {
			if u == "DESC" {
				dir = sqlast.Desc
			}
			p.pos++
		}
		stmt.OrderBy = append(stmt.OrderBy, sqlast.OrderItem{Column: col, Direction: dir})
		if tok, ok := p.current(); ok && tok == "," {
			p.pos++
			continue
		}
		break
	}
	return nil
}

func (p *Parser) parseLimit(stmt *sqlast.SelectStatement) error {
	if _, err := p.consume("LIMIT"); err != nil {
		return err
	}
	tok, err := p.consumeAny()
	if err != nil {
		return err
	}
	n, convErr := strconv.Atoi(tok)
	if convErr != nil {
		return herr.New(herr.ParseError, "LIMIT must be an integer, got %q", tok)
	}
	if n < 0 {
		return herr.New(herr.ParseError, "LIMIT must be non-negative, got %d", n)
	}
	stmt.Limit = n
	stmt.HasLimit = true
	return nil
}

func unquote(tok string) string {
	if len(tok) >= 2 {
		if (tok[0] == '\'' && tok[len(tok)-1] == '\'') || (tok[0] == '"' && tok[len(tok)-1] == '"') {
			return tok[1 : len(tok)-1]
		}
	}
	return tok
}

// parseValue parses a literal token into a Value: integer, float, quoted
// string, or bare identifier (treated as a string).
func parseValue(tok string) sqltypes.Value {
	if len(tok) >= 2 {
		if (tok[0] == '\'' && tok[len(tok)-1] == '\'') || (tok[0] == '"' && tok[len(tok)-1] == '"') {
			return sqltypes.StringValue(tok[1 : len(tok)-1])
		}
	}
	if iv, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return sqltypes.IntValue(iv)
	}
	if fv, err := strconv.ParseFloat(tok, 64); err == nil {
		return sqltypes.FloatValue(fv)
	}
	return sqltypes.StringValue(tok)
}

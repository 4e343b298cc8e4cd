package store

import (
	"fmt"

	"github.com/azure/brand-mentions-api/internal/query"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns maps predicate field names to the scalar columns that back them.
// Fields missing from the map cannot be filtered by the database.
type Columns map[string]clause.Column

var (
	AlertColumns = Columns{
		"status":   {Table: "alerts", Name: "status"},
		"severity": {Table: "alerts", Name: "severity"},
	}
	PostColumns = Columns{
		"sentiment": {Table: "posts", Name: "sentiment"},
		"platform":  {Table: "posts", Name: "platform"},
		"source":    {Table: "posts", Name: "source"},
	}
	CaseStudyColumns = Columns{
		"status": {Table: "case_studies", Name: "status"},
	}
)

// Native reports whether p can be evaluated by the database: equality and
// membership on mapped columns, combined with And/Or.
func (c Columns) Native(p query.Predicate) bool {
	switch p.Kind {
	case query.KindEq, query.KindIn:
		_, ok := c[p.Field]
		return ok
	case query.KindAnd, query.KindOr:
		for _, child := range p.Children {
			if !c.Native(child) {
				return false
			}
		}
		return true
	}
	return false
}

// ApplyNative adds p to db as a WHERE condition.
func ApplyNative(db *gorm.DB, p query.Predicate, columns Columns) (*gorm.DB, error) {
	if p.IsTrue() {
		return db, nil
	}
	expr, err := expression(p, columns)
	if err != nil {
		return nil, err
	}
	return db.Where(expr), nil
}

func expression(p query.Predicate, columns Columns) (clause.Expression, error) {
	switch p.Kind {
	case query.KindEq:
		col, ok := columns[p.Field]
		if !ok {
			return nil, fmt.Errorf("field %q has no column", p.Field)
		}
		return clause.Eq{Column: col, Value: p.Value}, nil
	case query.KindIn:
		col, ok := columns[p.Field]
		if !ok {
			return nil, fmt.Errorf("field %q has no column", p.Field)
		}
		values := make([]interface{}, len(p.Values))
		for i, v := range p.Values {
			values[i] = v
		}
		return clause.IN{Column: col, Values: values}, nil
	case query.KindAnd, query.KindOr:
		exprs := make([]clause.Expression, 0, len(p.Children))
		for _, child := range p.Children {
			expr, err := expression(child, columns)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr)
		}
		if p.Kind == query.KindAnd {
			if len(exprs) == 0 {
				return clause.Expr{SQL: "1 = 1"}, nil
			}
			return clause.And(exprs...), nil
		}
		if len(exprs) == 0 {
			return clause.Expr{SQL: "1 = 0"}, nil
		}
		return clause.Or(exprs...), nil
	}
	return nil, fmt.Errorf("predicate on %q cannot be evaluated by the database", p.Field)
}

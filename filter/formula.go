package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Literal реализуют значения, которые сами знают своё представление
// в формуле (например, дата без времени).
type Literal interface {
	FormulaLiteral() string
}

type leafOp int

const (
	opEq leafOp = iota
	opNe
	opGt
	opLt
	opGe
	opLe
)

var opTokens = map[leafOp]string{
	opEq: "=",
	opNe: "!=",
	opGt: ">",
	opLt: "<",
	opGe: ">=",
	opLe: "<=",
}

type compareExpr struct {
	field string
	op    leafOp
	value any
}

// Eq — условие «поле равно значению».
func Eq(field string, value any) Expression { return compareExpr{field: field, op: opEq, value: value} }

// Ne — условие «поле не равно значению».
func Ne(field string, value any) Expression { return compareExpr{field: field, op: opNe, value: value} }

// Gt — условие «поле больше значения».
func Gt(field string, value any) Expression { return compareExpr{field: field, op: opGt, value: value} }

// Lt — условие «поле меньше значения».
func Lt(field string, value any) Expression { return compareExpr{field: field, op: opLt, value: value} }

// Ge — условие «поле больше или равно значению».
func Ge(field string, value any) Expression { return compareExpr{field: field, op: opGe, value: value} }

// Le — условие «поле меньше или равно значению».
func Le(field string, value any) Expression { return compareExpr{field: field, op: opLe, value: value} }

func (e compareExpr) Formula(s Schema) (string, error) {
	col, err := lookup(s, e.field)
	if err != nil {
		return "", err
	}

	// Чекбоксы сравниваются без литералов TRUE()/FALSE(): сервер хранит
	// их как присутствие значения.
	if col.Boolean && e.op == opEq {
		if b, ok := e.value.(bool); ok {
			if b {
				return "(" + quoteColumn(col.Name) + ")", nil
			}
			return "NOT(" + quoteColumn(col.Name) + ")", nil
		}
	}

	value, err := encodeOperand(col, e.value)
	if err != nil {
		return "", err
	}
	lit, err := quoteValue(value)
	if err != nil {
		return "", err
	}
	return quoteColumn(col.Name) + opTokens[e.op] + lit, nil
}

type emptyExpr struct {
	field string
	empty bool
}

// Empty — условие «поле пустое».
func Empty(field string) Expression { return emptyExpr{field: field, empty: true} }

// NotEmpty — условие «поле непустое».
func NotEmpty(field string) Expression { return emptyExpr{field: field, empty: false} }

func (e emptyExpr) Formula(s Schema) (string, error) {
	col, err := lookup(s, e.field)
	if err != nil {
		return "", err
	}
	if e.empty {
		return "NOT(" + quoteColumn(col.Name) + ")", nil
	}
	return quoteColumn(col.Name) + `!=""`, nil
}

type containsExpr struct {
	field    string
	value    any
	excludes bool
}

// Contains — условие вхождения значения в множественное поле.
func Contains(field string, value any) Expression {
	return containsExpr{field: field, value: value}
}

// Excludes — условие отсутствия значения в множественном поле.
func Excludes(field string, value any) Expression {
	return containsExpr{field: field, value: value, excludes: true}
}

func (e containsExpr) Formula(s Schema) (string, error) {
	col, err := lookup(s, e.field)
	if err != nil {
		return "", err
	}
	value, err := encodeOperand(col, e.value)
	if err != nil {
		return "", err
	}
	lit, err := quoteValue(value)
	if err != nil {
		return "", err
	}

	// Множественные значения сервер отдаёт в формулах строкой,
	// разделённой ", " — ищем значение с запятыми-ограничителями.
	formula := `FIND(", "&` + lit + `&", ",", "&` + quoteColumn(col.Name) + `&", ")`
	if e.excludes {
		return formula + "=0", nil
	}
	return formula + ">0", nil
}

func lookup(s Schema, field string) (Column, error) {
	col, ok := s.Column(field)
	if !ok {
		return Column{}, &InvalidFieldError{Table: s.TableName(), Field: field}
	}
	return col, nil
}

func encodeOperand(col Column, value any) (any, error) {
	if col.Encode == nil {
		return value, nil
	}
	return col.Encode(value)
}

func quoteColumn(name string) string {
	return "{" + name + "}"
}

var stringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `'`, `\'`)

func quoteValue(value any) (string, error) {
	switch v := value.(type) {
	case Literal:
		return v.FormulaLiteral(), nil
	case string:
		return `"` + stringEscaper.Replace(v) + `"`, nil
	case bool:
		if v {
			return "TRUE()", nil
		}
		return "FALSE()", nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case time.Time:
		return v.UTC().Format(`"2006-01-02T15:04:05.000Z"`), nil
	default:
		return "", fmt.Errorf("filter: unsupported operand %T", value)
	}
}

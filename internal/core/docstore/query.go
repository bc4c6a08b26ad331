package docstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// Reserved field names address document metadata instead of data fields.
const (
	FieldID        = "$id"
	FieldCreatedAt = "$createdAt"
	FieldUpdatedAt = "$updatedAt"
)

type queryKind int

const (
	queryEqual queryKind = iota
	queryOrder
	queryLimit
	queryOffset
)

// Query is one clause of a List call. Build them with Equal, OrderAsc,
// OrderDesc, Limit and Offset.
type Query struct {
	kind  queryKind
	field string
	value any
	desc  bool
	n     int
}

func Equal(field string, value any) Query {
	return Query{kind: queryEqual, field: field, value: value}
}

func OrderAsc(field string) Query {
	return Query{kind: queryOrder, field: field}
}

func OrderDesc(field string) Query {
	return Query{kind: queryOrder, field: field, desc: true}
}

func Limit(n int) Query {
	return Query{kind: queryLimit, n: n}
}

func Offset(n int) Query {
	return Query{kind: queryOffset, n: n}
}

type filter struct {
	field string
	value any
}

type order struct {
	field string
	desc  bool
}

type plan struct {
	filters []filter
	orders  []order
	limit   int
	offset  int
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validField(field string) bool {
	switch field {
	case FieldID, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return fieldPattern.MatchString(field)
}

func compile(queries []Query) (plan, error) {
	var p plan
	for _, q := range queries {
		switch q.kind {
		case queryEqual, queryOrder:
			if !validField(q.field) {
				return plan{}, fmt.Errorf("%w: %q", ErrInvalidField, q.field)
			}
			if q.kind == queryEqual {
				p.filters = append(p.filters, filter{field: q.field, value: q.value})
			} else {
				p.orders = append(p.orders, order{field: q.field, desc: q.desc})
			}
		case queryLimit:
			if q.n < 0 {
				return plan{}, fmt.Errorf("%w: negative limit", ErrInvalidQuery)
			}
			p.limit = q.n
		case queryOffset:
			if q.n < 0 {
				return plan{}, fmt.Errorf("%w: negative offset", ErrInvalidQuery)
			}
			p.offset = q.n
		}
	}
	return p, nil
}

// TextValue is the string form used for equality matching: strings as-is,
// booleans and numbers as decimal text, anything else as JSON.
func TextValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

package remote

import "encoding/json"

const (
	MethodEqual     = "equal"
	MethodOrderDesc = "orderDesc"
	MethodOrderAsc  = "orderAsc"
	MethodLimit     = "limit"
	MethodOffset    = "offset"
)

// Query is one filter, ordering or pagination clause of a document listing.
type Query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

func Equal(attribute string, values ...any) Query {
	return Query{Method: MethodEqual, Attribute: attribute, Values: values}
}

func OrderDesc(attribute string) Query {
	return Query{Method: MethodOrderDesc, Attribute: attribute}
}

func OrderAsc(attribute string) Query {
	return Query{Method: MethodOrderAsc, Attribute: attribute}
}

func Limit(n int) Query {
	return Query{Method: MethodLimit, Values: []any{n}}
}

func Offset(n int) Query {
	return Query{Method: MethodOffset, Values: []any{n}}
}

// String renders the query in its wire form.
func (q Query) String() string {
	b, _ := json.Marshal(q)
	return string(b)
}

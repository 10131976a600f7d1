package repo

import (
	"fmt"
	"strings"

	"github.com/BuzzLyutic/taskr/internal/remote"
)

const (
	DefaultLimit = 25
	MaxLimit     = 5000
)

// columns maps queryable document attributes to task columns.
var columns = map[string]string{
	remote.AttrID:        "id",
	remote.AttrCreatedAt: "created_at",
	remote.AttrUpdatedAt: "updated_at",
	remote.AttrUserID:    "user_id",
	remote.AttrUsername:  "username",
	remote.AttrTitle:     "title",
	remote.AttrTag:       "tag",
	remote.AttrCompleted: "completed",
	remote.AttrSerial:    "serial",
}

// listQuery is a document listing translated to SQL fragments. Placeholders
// in where start after the offset the query was built with.
type listQuery struct {
	where []string
	args  []any
	order  []string
	limit  int
	offset int
}

// buildListQuery translates service queries; argOffset is the number of
// placeholders already used by the caller.
func buildListQuery(argOffset int, queries []remote.Query) (listQuery, error) {
	lq := listQuery{limit: DefaultLimit}
	for _, q := range queries {
		switch q.Method {
		case remote.MethodEqual:
			col, err := column(q.Attribute)
			if err != nil {
				return lq, err
			}
			if len(q.Values) == 0 {
				return lq, remote.Invalid(fmt.Sprintf("Invalid query: Equal queries require at least one value for %s", q.Attribute))
			}
			alts := make([]string, 0, len(q.Values))
			for _, v := range q.Values {
				lq.args = append(lq.args, v)
				alts = append(alts, fmt.Sprintf("%s = $%d", col, argOffset+len(lq.args)))
			}
			lq.where = append(lq.where, "("+strings.Join(alts, " OR ")+")")
		case remote.MethodOrderAsc, remote.MethodOrderDesc:
			col, err := column(q.Attribute)
			if err != nil {
				return lq, err
			}
			dir := "ASC"
			if q.Method == remote.MethodOrderDesc {
				dir = "DESC"
			}
			lq.order = append(lq.order, col+" "+dir)
		case remote.MethodLimit:
			n, ok := intValue(q.Values)
			if !ok || n < 1 || n > MaxLimit {
				return lq, remote.Invalid(fmt.Sprintf("Invalid query: Limit must be between 1 and %d", MaxLimit))
			}
			lq.limit = n
		case remote.MethodOffset:
			n, ok := intValue(q.Values)
			if !ok || n < 0 {
				return lq, remote.Invalid("Invalid query: Offset must be a non-negative integer")
			}
			lq.offset = n
		default:
			return lq, remote.Invalid("Invalid query method: " + q.Method)
		}
	}
	return lq, nil
}

func column(attr string) (string, error) {
	col, ok := columns[attr]
	if !ok {
		return "", remote.Invalid("Invalid query: Attribute not found in schema: " + attr)
	}
	return col, nil
}

func intValue(values []any) (int, bool) {
	if len(values) != 1 {
		return 0, false
	}
	switch v := values[0].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

// orderBy always ends with the id so paging is stable.
func (lq listQuery) orderBy() string {
	order := append(lq.order[:len(lq.order):len(lq.order)], "id DESC")
	return strings.Join(order, ", ")
}

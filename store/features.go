// Package store is a thin data-access facade over the MongoDB driver:
// a generic repository keyed by collection name, plus a translator from
// flat list-endpoint query parameters to a composed read query.
package store

import (
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPage  = 1
	defaultLimit = 100

	// legacy metadata field excluded from projections by default
	versionField = "__v"
)

// Parameters consumed by the builder itself; everything else becomes a
// filter condition.
var reservedParams = map[string]bool{
	"page":   true,
	"sort":   true,
	"limit":  true,
	"fields": true,
}

var comparisonOps = map[string]bool{
	"gte": true,
	"gt":  true,
	"lte": true,
	"lt":  true,
}

// ListQuery is a composed read query: an equality/comparison filter,
// a multi-field sort, a projection and an offset/limit pair. It does
// not execute itself; Repository.Find does.
type ListQuery struct {
	Filter     bson.M
	Sort       bson.D
	Projection bson.M
	Skip       int64
	Limit      int64
}

// BuildListQuery translates flat query-string parameters into a
// ListQuery, applying filter, sort, field selection and pagination in
// that order.
//
// Filtering strips the reserved parameters and turns the rest into
// equality conditions; keys of the form field[op] with op in gte, gt,
// lte, lt become the matching comparison. Sort takes a comma-separated
// field list, "-" prefix meaning descending, defaulting to newest
// first. Fields takes a comma-separated projection, defaulting to
// excluding the legacy version field. Pagination defaults to page 1,
// limit 100; malformed numbers fall back to the defaults and nothing
// clamps negatives.
func BuildListQuery(params map[string]string) ListQuery {
	q := ListQuery{
		Filter:     bson.M{},
		Sort:       bson.D{{Key: "created_at", Value: -1}},
		Projection: bson.M{versionField: 0},
		Limit:      defaultLimit,
	}

	for key, value := range params {
		if reservedParams[key] {
			continue
		}

		field, op, ok := splitOperator(key)
		if !ok {
			q.Filter[key] = coerceValue(value)
			continue
		}

		cond, exists := q.Filter[field].(bson.M)
		if !exists {
			cond = bson.M{}
			q.Filter[field] = cond
		}
		cond["$"+op] = coerceValue(value)
	}

	if sort := params["sort"]; sort != "" {
		q.Sort = bson.D{}
		for _, field := range strings.Split(sort, ",") {
			if field == "" {
				continue
			}
			if strings.HasPrefix(field, "-") {
				q.Sort = append(q.Sort, bson.E{Key: field[1:], Value: -1})
			} else {
				q.Sort = append(q.Sort, bson.E{Key: field, Value: 1})
			}
		}
	}

	if fields := params["fields"]; fields != "" {
		q.Projection = bson.M{}
		for _, field := range strings.Split(fields, ",") {
			if field != "" {
				q.Projection[field] = 1
			}
		}
	}

	page := atoiDefault(params["page"], defaultPage)
	q.Limit = int64(atoiDefault(params["limit"], defaultLimit))
	q.Skip = int64(page-1) * q.Limit

	return q
}

// FindOptions materializes the sort, projection and pagination stages
// for the driver.
func (q ListQuery) FindOptions() *options.FindOptions {
	return options.Find().
		SetSort(q.Sort).
		SetProjection(q.Projection).
		SetSkip(q.Skip).
		SetLimit(q.Limit)
}

// splitOperator decomposes a "price[gte]" style key.
func splitOperator(key string) (field, op string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return "", "", false
	}

	field = key[:open]
	op = key[open+1 : len(key)-1]
	if !comparisonOps[op] {
		return "", "", false
	}

	return field, op, true
}

// coerceValue turns numeric and boolean strings into their typed form
// so comparisons against typed document fields behave as expected;
// everything else stays a string.
func coerceValue(value string) any {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

func atoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

package querybuilder

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/snapq/snapq-go/internal/apperror"
)

// ParseFromRequest reads filter[field][op]=value, sort=field,-other, limit
// and offset from the gin context's query string.
func ParseFromRequest(c *gin.Context) (*Query, error) {
	q := &Query{Limit: 50, Offset: 0}

	for key, values := range c.Request.URL.Query() {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(key, "filter["), "]")
		parts := strings.SplitN(inner, "][", 2)
		if len(parts) != 2 {
			return nil, apperror.Validation("malformed filter key: " + key)
		}
		field, opRaw := parts[0], parts[1]

		op, ok := ParseOperator(opRaw)
		if !ok {
			return nil, apperror.Validation("unknown operator: " + opRaw)
		}

		var vals []string
		if len(values) > 0 && values[0] != "" {
			vals = strings.Split(values[0], ",")
		}
		if RequiresValue(op) && len(vals) == 0 {
			return nil, apperror.Validation("operator requires a value: " + opRaw)
		}

		q.Filters = append(q.Filters, Filter{Field: field, Operator: op, Values: vals})
	}

	if sortParam := c.Query("sort"); sortParam != "" {
		for _, field := range strings.Split(sortParam, ",") {
			desc := strings.HasPrefix(field, "-")
			q.Sorts = append(q.Sorts, Sort{Field: strings.TrimPrefix(field, "-"), Desc: desc})
		}
	}

	if limitParam := c.Query("limit"); limitParam != "" {
		if n, err := strconv.Atoi(limitParam); err == nil && n > 0 && n <= 500 {
			q.Limit = n
		}
	}
	if offsetParam := c.Query("offset"); offsetParam != "" {
		if n, err := strconv.Atoi(offsetParam); err == nil && n >= 0 {
			q.Offset = n
		}
	}

	return q, nil
}

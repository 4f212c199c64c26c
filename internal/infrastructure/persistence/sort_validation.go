package persistence

import (
	"strings"
)

// sortColumns maps the sort keys a caller may ask for to the columns they
// order by. Anything else falls back, so request input never reaches SQL.
type sortColumns struct {
	columns  map[string]string
	fallback string
}

var clientSort = sortColumns{
	columns: map[string]string{
		"id":         "id",
		"created_at": "created_at",
		"updated_at": "updated_at",
		"name":       "name",
		"type":       "type",
		"city":       "address_city",
	},
	fallback: "created_at",
}

// clause returns an ORDER BY expression. Direction defaults to descending;
// id breaks ties so pages stay stable.
func (s sortColumns) clause(field, dir string) string {
	column, ok := s.columns[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		column = s.fallback
	}
	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		direction = "ASC"
	}
	if column == "id" {
		return "id " + direction
	}
	return column + " " + direction + ", id " + direction
}

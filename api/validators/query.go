package validators

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
)

const maxSearchLen = 200

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]string{key: "must be an integer"})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]string{key: "must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max)})
	}
	return value, nil
}

// ParseListQuery reads page, limit, search, filters, sort and columns from the
// URL. Filters are a JSON array of {fieldName, operator, value}; numbers keep
// their literal text so decimals survive.
func ParseListQuery(r *http.Request) (pagination.Query, error) {
	values := r.URL.Query()
	page, err := ParseQueryInt(r, "page", pagination.DefaultPage, 1, 1<<31-1)
	if err != nil {
		return pagination.Query{}, err
	}
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Query{}, err
	}

	q := pagination.Query{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(values.Get("search")),
	}
	if len(q.Search) > maxSearchLen {
		return pagination.Query{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid search").WithDetails(map[string]string{"search": "must be at most " + strconv.Itoa(maxSearchLen) + " characters"})
	}

	if raw := strings.TrimSpace(values.Get("filters")); raw != "" {
		decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
		decoder.UseNumber()
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&q.Filters); err != nil {
			return pagination.Query{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid filters").
				WithDetails(map[string]string{"filters": "must be a JSON array of {fieldName, operator, value}"})
		}
	}

	sort, err := pagination.ParseSort(values.Get("sort"))
	if err != nil {
		return pagination.Query{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort").WithDetails(map[string]string{"sort": err.Error()})
	}
	q.Sort = sort

	if raw := strings.TrimSpace(values.Get("columns")); raw != "" {
		for _, col := range strings.Split(raw, ",") {
			if col = strings.TrimSpace(col); col != "" {
				q.Columns = append(q.Columns, col)
			}
		}
	}
	return q, nil
}

// PathUUID parses a chi URL parameter as a UUID.
func PathUUID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).WithDetails(map[string]string{name: "must be a valid uuid"})
	}
	return id, nil
}

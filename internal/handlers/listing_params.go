package handlers

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"furnistore/internal/common"
	"furnistore/internal/listing"
	"furnistore/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// paramError names the query parameter that failed to parse.
type paramError struct {
	field   string
	message string
}

func (e *paramError) Error() string { return e.field + " " + e.message }

func invalidParam(field, message string) error {
	return &paramError{field: field, message: message}
}

// sendListingError reports a malformed parameter under its name in details.
func sendListingError(c echo.Context, err error) error {
	var pe *paramError
	if errors.As(err, &pe) {
		return common.SendValidationError(c, pe.field, pe.message)
	}
	return common.SendServiceError(c, err)
}

// parseListingQuery reads limit, cursor, filters and sorting from the query
// string. Repeatable id parameters also accept comma-separated values.
// Limits outside 1..100 are clamped; malformed values are rejected.
func parseListingQuery(q url.Values) (listing.PageRequest, error) {
	req := listing.PageRequest{Cursor: q.Get("cursor")}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, invalidParam("limit", "must be a number")
		}
		req.PageSize = n
	}
	req.PageSize = listing.ClampPageSize(req.PageSize)

	var err error
	f := &req.Filter
	if f.CategoryIDs, err = uuidList(q, "category_id"); err != nil {
		return req, err
	}
	if f.BrandIDs, err = uuidList(q, "brand_id"); err != nil {
		return req, err
	}
	if f.MinPrice, err = optionalDecimal(q, "min_price"); err != nil {
		return req, err
	}
	if f.MaxPrice, err = optionalDecimal(q, "max_price"); err != nil {
		return req, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return req, invalidParam("min_price", "must not exceed max_price")
	}
	for name, dst := range map[string]**bool{
		"is_active":   &f.IsActive,
		"is_featured": &f.IsFeatured,
		"is_new":      &f.IsNew,
		"on_sale":     &f.OnSale,
	} {
		if *dst, err = optionalBool(q, name); err != nil {
			return req, err
		}
	}
	f.Search = strings.TrimSpace(q.Get("search"))

	sorting := models.ProductTableSorting{Column: q.Get("sort_by"), Direction: q.Get("sort_dir")}
	if _, ok := listing.LookupSortColumn(sorting.Column); sorting.Column != "" && !ok {
		return req, invalidParam("sort_by", "is not a sortable column")
	}
	if req.Sorting, err = listing.NormalizeSorting(sorting); err != nil {
		return req, invalidParam("sort_dir", "must be asc or desc")
	}
	return req, nil
}

func uuidList(q url.Values, name string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, raw := range q[name] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, invalidParam(name, "must be a valid UUID")
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func optionalDecimal(q url.Values, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, invalidParam(name, "must be a non-negative number")
	}
	return &d, nil
}

func optionalBool(q url.Values, name string) (*bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, invalidParam(name, "must be true or false")
	}
	return &b, nil
}

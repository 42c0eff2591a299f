package adminclient

import (
	"net/url"
	"strconv"

	"furnistore/internal/listing"
)

// EncodeListingQuery renders a page request as the query string the listing
// endpoints accept.
func EncodeListingQuery(req listing.PageRequest) url.Values {
	q := url.Values{}
	if req.PageSize > 0 {
		q.Set("limit", strconv.Itoa(req.PageSize))
	}
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	}

	f := req.Filter
	for _, id := range f.CategoryIDs {
		q.Add("category_id", id.String())
	}
	for _, id := range f.BrandIDs {
		q.Add("brand_id", id.String())
	}
	if f.MinPrice != nil {
		q.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		q.Set("max_price", f.MaxPrice.String())
	}
	setBool(q, "is_active", f.IsActive)
	setBool(q, "is_featured", f.IsFeatured)
	setBool(q, "is_new", f.IsNew)
	setBool(q, "on_sale", f.OnSale)
	if f.Search != "" {
		q.Set("search", f.Search)
	}

	if req.Sorting.Column != "" {
		q.Set("sort_by", req.Sorting.Column)
	}
	if req.Sorting.Direction != "" {
		q.Set("sort_dir", req.Sorting.Direction)
	}
	return q
}

func setBool(q url.Values, name string, v *bool) {
	if v != nil {
		q.Set(name, strconv.FormatBool(*v))
	}
}

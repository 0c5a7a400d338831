package domain

// Product is a catalog entry in the inventory store. Numeric fields live as
// text in the backing key-value store and are decoded back at the storage
// boundary. Stock has no floor; the store allows it to go negative and
// callers own the policy.
type Product struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	PassengerCapacity int    `json:"passenger_capacity"`
	MaximumSpeed      int    `json:"maximum_speed"`
	InStock           int    `json:"in_stock"`
}

// ProductUpdate carries a partial update. Nil fields are left untouched.
type ProductUpdate struct {
	Title             *string
	PassengerCapacity *int
	MaximumSpeed      *int
	InStock           *int
}

// ProductPage is one page of a filtered catalog listing. TotalProducts counts
// the filtered set, not the whole catalog.
type ProductPage struct {
	Products      []Product `json:"products"`
	Page          int       `json:"page"`
	PerPage       int       `json:"per_page"`
	TotalProducts int       `json:"total_products"`
}

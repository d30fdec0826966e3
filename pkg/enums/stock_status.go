package enums

// StockStatus is a read-time projection of a product's stock quantity. It is
// never stored.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "In Stock"
	StockStatusLowStock   StockStatus = "Low Stock"
	StockStatusOutOfStock StockStatus = "Out of Stock"
)

func (s StockStatus) String() string {
	return string(s)
}

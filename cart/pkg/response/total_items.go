package response

// TotalItemsSource names the tier ResolveTotalItems took its value from.
type TotalItemsSource string

const (
	TotalItemsFromSummary    TotalItemsSource = "summary"
	TotalItemsFromItems      TotalItemsSource = "items"
	TotalItemsFromItemsCount TotalItemsSource = "items_count"
	TotalItemsNone           TotalItemsSource = "none"
)

// ResolveTotalItems applies the precedence summary.total_items, then the sum
// of item quantities when the items array was sent, then items_count.
func ResolveTotalItems(c *Cart) (int, TotalItemsSource) {
	if c == nil {
		return 0, TotalItemsNone
	}
	if c.Summary != nil && c.Summary.TotalItems != nil {
		return *c.Summary.TotalItems, TotalItemsFromSummary
	}
	if c.Items != nil {
		sum := 0
		for _, item := range c.Items {
			sum += item.Quantity
		}
		return sum, TotalItemsFromItems
	}
	if c.ItemsCount != nil {
		return *c.ItemsCount, TotalItemsFromItemsCount
	}
	return 0, TotalItemsNone
}

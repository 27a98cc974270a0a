package orders

// Order is one customer order.
type Order struct {
	ID    int
	State string
	Total int64
}

// Store is the interface for order persistence.
type Store interface {
	FindByID(id int) (*Order, error)
	Save(order *Order) error
}

func newOrder(state string, total int64) *Order {
	return &Order{State: state, Total: total}
}

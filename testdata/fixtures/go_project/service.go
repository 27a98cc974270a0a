package orders

import "fmt"

// OrderService handles order state transitions.
type OrderService struct {
	store Store
}

// NewOrderService creates a new OrderService.
func NewOrderService(store Store) *OrderService {
	return &OrderService{store: store}
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(id int) (*Order, error) {
	order, err := s.store.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// CreateOrder opens a new order in the given state.
func (s *OrderService) CreateOrder(state string, total int64) (*Order, error) {
	order := newOrder(state, total)
	if err := s.store.Save(order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

package domain

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// Color is the badge colour used when listing order history.
func (s OrderStatus) Color() string {
	switch s {
	case OrderStatusPending:
		return "#ffc107"
	case OrderStatusProcessing:
		return "#17a2b8"
	case OrderStatusShipped:
		return "#007bff"
	case OrderStatusDelivered:
		return "#28a745"
	case OrderStatusCancelled:
		return "#dc3545"
	default:
		return "#6c757d"
	}
}

func (s OrderStatus) String() string {
	return string(s)
}

type OrderItem struct {
	ID          int64    `json:"id,omitempty"`
	ProductID   int64    `json:"productId,omitempty"`
	ProductName string   `json:"productName,omitempty"`
	Quantity    int      `json:"quantity"`
	Price       float64  `json:"price"`
	Product     *Product `json:"product,omitempty"`
}

// DisplayName prefers the nested product, then the denormalised name.
func (i OrderItem) DisplayName() string {
	if i.Product != nil && i.Product.Name != "" {
		return i.Product.Name
	}
	if i.ProductName != "" {
		return i.ProductName
	}
	return "Product"
}

type Order struct {
	ID                    int64       `json:"id"`
	UserID                int64       `json:"userId"`
	TotalAmount           float64     `json:"totalAmount"`
	Status                OrderStatus `json:"status"`
	CreatedAt             Timestamp   `json:"createdAt"`
	Items                 []OrderItem `json:"items"`
	StripePaymentIntentID string      `json:"stripePaymentIntentId,omitempty"`
}

// OrderLine is the price snapshot sent when creating an order.
type OrderLine struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type CreateOrderRequest struct {
	UserID      int64       `json:"userId"`
	TotalAmount float64     `json:"totalAmount"`
	Items       []OrderLine `json:"items"`
}

// NewCreateOrderRequest maps a cart snapshot to the order payload.
func NewCreateOrderRequest(userID int64, snapshot CartSnapshot) CreateOrderRequest {
	items := make([]OrderLine, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		items = append(items, OrderLine{
			ProductID: line.ID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}
	return CreateOrderRequest{
		UserID:      userID,
		TotalAmount: snapshot.Total,
		Items:       items,
	}
}

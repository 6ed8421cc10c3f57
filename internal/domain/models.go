package domain

import "time"

// Product is a static catalog entry for a digital good. Catalog entries are
// immutable for the process lifetime.
type Product struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"` // smallest currency unit
	Icon         string `json:"icon"`
	Category     string `json:"category"`
	Stock        int64  `json:"stock"`
	Popular      bool   `json:"popular"`
	DownloadLink string `json:"download_link"`
}

// Order is the central entity. Commercial and payment fields are write-once
// at creation; lifecycle fields are mutated only through the order service.
type Order struct {
	OrderID     string `json:"order_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ProductIcon string `json:"product_icon"`

	DownloadLink string `json:"download_link"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	TotalAmount  int64  `json:"total_amount"`
	TotalPayment int64  `json:"total_payment"` // amount including gateway fee
	Fee          int64  `json:"fee"`

	BuyerEmail string `json:"buyer_email"`
	BuyerName  string `json:"buyer_name"`

	QRIS      string     `json:"qris"`
	ExpiredAt *time.Time `json:"expired_at"`

	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	PaidAt          *time.Time  `json:"paid_at"`
	DeliveredAt     *time.Time  `json:"delivered_at"`
	DeliveryCode    string      `json:"delivery_code,omitempty"`
	DeliveryMessage string      `json:"delivery_message,omitempty"`
}

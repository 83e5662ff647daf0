package order

import (
	"time"

	"example.com/shop/customer"
)

type Status string

type Base struct {
	ID        int64
	CreatedAt time.Time
}

type Line struct {
	SKU   string
	Qty   int
	Order *Order
}

type Order struct {
	Base
	Number   string
	Status   Status
	Lines    []Line
	Labels   map[string]string
	Customer *customer.Customer
	Grid     [2][3]int
	Payload  []byte
	Extra    any
	Secret   string `json:"-"`
	notes    string
	OnChange func()
}

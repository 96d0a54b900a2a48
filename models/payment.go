package models

import "github.com/shopspring/decimal"

type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	OrderID   string          `json:"orderId"`
	OrderInfo string          `json:"orderInfo"`
	Provider  string          `json:"provider"` // MOMO, VNPAY
}

type PaymentSession struct {
	PaymentURL string `json:"paymentUrl"`
}

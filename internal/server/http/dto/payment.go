package dto

import "time"

// PurchaseRequest starts a credit purchase.
type PurchaseRequest struct {
	Phone  string `json:"phone"`
	Amount int64  `json:"amount"`
}

// PaymentResponse describes a checkout.
type PaymentResponse struct {
	CheckoutID string    `json:"checkoutId"`
	Status     string    `json:"status"`
	State      string    `json:"state"`
	Phone      string    `json:"phone"`
	Amount     int64     `json:"amount"`
	Credits    int64     `json:"credits"`
	Attempts   int       `json:"attempts"`
	ResultDesc string    `json:"resultDesc,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CallbackRequest is the STK push result notification body.
type CallbackRequest struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackAck acknowledges a notification.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

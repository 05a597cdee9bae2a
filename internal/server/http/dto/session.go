package dto

// SessionResponse describes the caller's session.
type SessionResponse struct {
	UserID           string `json:"userId"`
	Credits          int64  `json:"credits"`
	State            string `json:"state"`
	ActiveCheckoutID string `json:"activeCheckoutId,omitempty"`
}

// ErrorResponse carries a human readable failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is returned by the health check.
type StatusResponse struct {
	Status string `json:"status"`
}

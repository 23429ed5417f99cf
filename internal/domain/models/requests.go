package models

// CreateDeliveryRequest is the payload for registering a new delivery.
type CreateDeliveryRequest struct {
	Date       string              `json:"date" binding:"required"`
	FromBranch string              `json:"fromBranch" binding:"required"`
	ToBranch   string              `json:"toBranch" binding:"required"`
	Type       string              `json:"type"`
	Note       string              `json:"note"`
	Items      []CreateItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreateItemRequest is one line item within a create request.
type CreateItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// ReceiveRequest confirms reception of a delivery.
type ReceiveRequest struct {
	ReceivedBy string `json:"receivedBy" binding:"required"`
}

// LoginRequest carries the shared access password.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

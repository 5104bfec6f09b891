package admin

// GrantCreditsRequest is the body of POST /admin/credits/grant.
type GrantCreditsRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Amount int    `json:"amount" validate:"required,min=1,max=1000000"`
	Reason string `json:"reason" validate:"omitempty,reason"`
	Note   string `json:"note" validate:"omitempty,max=500"`
}

// MemberRequest is the body of POST/DELETE /admin/members.
type MemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// GrantResponse reports the balance after an operator grant.
type GrantResponse struct {
	Email      string `json:"email"`
	Amount     int    `json:"amount_granted"`
	Reason     string `json:"reason"`
	NewBalance int    `json:"new_balance"`
}

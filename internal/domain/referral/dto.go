package referral

// ClaimRequest is the body of POST /referrals/claim.
type ClaimRequest struct {
	Code string `json:"code" validate:"required,min=8,max=8,alphanum"`
}

// CodeResponse is returned by GET /referrals/code.
type CodeResponse struct {
	Code           string `json:"code"`
	RewardReferrer int    `json:"reward_referrer"`
	RewardReferred int    `json:"reward_referred"`
}

package credit

import "time"

// BalanceResponse is returned by GET /credits.
type BalanceResponse struct {
	Credits          int       `json:"credits"`
	Tier             Tier      `json:"tier"`
	MonthlyAllotment int       `json:"monthly_allotment"`
	LastResetDate    time.Time `json:"last_reset_date"`
}

func NewBalanceResponse(p *Profile) BalanceResponse {
	return BalanceResponse{
		Credits:          p.Credits,
		Tier:             p.Tier,
		MonthlyAllotment: p.Tier.MonthlyAllotment(),
		LastResetDate:    p.LastResetDate,
	}
}

// CheckResponse is returned by GET /credits/check.
type CheckResponse struct {
	Balance   int  `json:"balance"`
	Required  int  `json:"required"`
	HasEnough bool `json:"has_enough"`
}

package referral

import "errors"

var (
	ErrUnknownCode       = errors.New("unknown referral code")
	ErrSelfReferral      = errors.New("cannot claim your own referral code")
	ErrCircularReferral  = errors.New("cannot claim the code of a user you referred")
	ErrAlreadyReferred   = errors.New("user was already referred")
	ErrClaimWindowClosed = errors.New("referral codes can only be claimed by new users")
	ErrCodeTaken         = errors.New("referral code already exists")
	ErrCodeExhausted     = errors.New("could not allocate a referral code")
)

package service

import "errors"

// 业务错误哨兵，处理器通过 errors.Is 映射为响应码
var (
	ErrNotFound            = errors.New("record not found")
	ErrValidation          = errors.New("validation failed")
	ErrCycleDetected       = errors.New("referral edge would create a cycle")
	ErrDuplicateSponsor    = errors.New("associate already has a sponsor")
	ErrDuplicateEntry      = errors.New("ledger entry already exists")
	ErrInvalidTransition   = errors.New("invalid payout state transition")
	ErrInvalidRate         = errors.New("invalid rate table values")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrPaymentRefRequired  = errors.New("payment reference required")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidPassword     = errors.New("invalid password")
	ErrWeakPassword        = errors.New("password does not meet policy")
	ErrAssociateInactive   = errors.New("associate is not active")
	ErrReferralCodeInvalid = errors.New("referral code generation failed")
)

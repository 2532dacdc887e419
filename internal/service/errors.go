package service

import (
	"errors"

	"github.com/GooferByte/wellness-rewards/internal/catalog"
)

var (
	ErrInvalidAction       = catalog.ErrInvalidAction
	ErrInvalidReward       = catalog.ErrInvalidReward
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrVoucherNotFound     = errors.New("voucher not found")
	ErrAlreadyUsedVoucher  = errors.New("voucher already used")
	ErrInvalidChallenge    = errors.New("invalid challenge")
	// ErrStorageFailure marks a failed durable write; nothing was applied and the call may be retried.
	ErrStorageFailure = errors.New("storage failure")
	ErrClosed         = errors.New("ledger closed")
)

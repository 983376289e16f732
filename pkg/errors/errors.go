package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrNilUser            = errors.New("user is nil")
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrAccountInactive    = errors.New("account deactivated")
	ErrUnauthorized       = errors.New("invalid authentication credentials")
	ErrForbidden          = errors.New("admin access required")
	ErrPremiumRequired    = errors.New("premium subscription required")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")

	ErrNilTransaction           = errors.New("transaction is nil")
	ErrInvalidTransactionStatus = errors.New("invalid transaction status")
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrDuplicateSession         = errors.New("transaction for session already exists")
	ErrStatusConflict           = errors.New("transaction status changed concurrently")

	// Payment path.
	ErrConfiguration       = errors.New("payment configuration missing")
	ErrInvalidProduct      = errors.New("invalid product type")
	ErrSignatureInvalid    = errors.New("invalid webhook signature")
	ErrInvalidTransition   = errors.New("invalid payment status transition")
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	ErrSurveyNotFound     = errors.New("survey not found")
	ErrESPNotConfigured   = errors.New("convertkit not configured")
	ErrUnknownSequence    = errors.New("unknown email sequence")
	ErrUnknownTag         = errors.New("unknown subscriber tag")
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

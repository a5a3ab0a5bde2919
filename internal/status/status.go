package status

import "errors"

var (
	// ErrInvalidSignature means the webhook body failed HMAC verification.
	// Hard gate: the caller must reject and do nothing else.
	ErrInvalidSignature = errors.New("webhook: invalid signature")

	// ErrMalformedEvent means the payload parsed but required fields are
	// missing. Acknowledged and skipped, never retried.
	ErrMalformedEvent = errors.New("webhook: malformed event")

	// ErrDuplicateDelivery means the external reference was already
	// processed. Normal condition; acknowledged as a no-op.
	ErrDuplicateDelivery = errors.New("ledger: duplicate delivery")

	// ErrEventNotFound means the charge metadata referenced an unknown
	// event record.
	ErrEventNotFound = errors.New("ledger: event not found")

	// ErrReferenceNotFound means a settlement or transfer had no matching
	// pending record or payout-account mapping.
	ErrReferenceNotFound = errors.New("ledger: reference not found")

	// ErrInsufficientBalance means a withdrawal exceeds the available
	// settled balance.
	ErrInsufficientBalance = errors.New("wallet: insufficient balance")

	// ErrTransactionConflict is a store-level optimistic-concurrency
	// failure. Retried internally; transient if exhausted.
	ErrTransactionConflict = errors.New("store: transaction conflict")

	// ErrUpstreamUnavailable means the payment gateway or store was
	// unreachable. Surfaced as retryable.
	ErrUpstreamUnavailable = errors.New("gateway: upstream unavailable")
)

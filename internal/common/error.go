package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Packet and bundle errors.
	ErrInvalidPacket         = errors.New("invalid packet")
	ErrWrongPacketType       = errors.New("wrong packet type")
	ErrSignatureVerification = errors.New("signature verification failed")
	ErrWrongAccount          = errors.New("wrong account")
	ErrDuplicatePacket       = errors.New("duplicate packet")
	ErrSealedPacketExists    = errors.New("sealed packet exists")
	ErrFileVerification      = errors.New("file verification failed")

	// Key material errors.
	ErrInvalidPassphrase  = errors.New("invalid passphrase")
	ErrInvalidKeyPairFile = errors.New("invalid key pair file")

	// ErrShutdownRequested is returned by the lifecycle monitor once an
	// operator-requested shutdown can proceed.
	ErrShutdownRequested = errors.New("shutdown requested")
)

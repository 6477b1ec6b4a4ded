package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAccessDenied indicates the caller is neither the document owner
	// nor an assigned recipient
	ErrAccessDenied = errors.New("access denied")

	// ErrNotAssigned indicates no assignment exists for the (document, recipient) pair
	ErrNotAssigned = errors.New("recipient not assigned to document")

	// ErrInvalidTransition indicates a lifecycle state machine guard failed
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrInvalidAnnotation indicates an annotation carries a non-numeric
	// coordinate or size after coercion
	ErrInvalidAnnotation = errors.New("invalid annotation")

	// ErrUnsupportedImageFormat indicates a signature image decodes as
	// neither PNG nor JPEG
	ErrUnsupportedImageFormat = errors.New("unsupported image format")

	// ErrArtifactMissing indicates a referenced blob is absent
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")
)

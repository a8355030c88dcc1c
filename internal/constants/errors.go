package constants

import "errors"

// Credential errors.
var (
	ErrNotAuthenticated  = errors.New("not authenticated, use 'recapi login' first")
	ErrInvalidJWTFormat  = errors.New("invalid JWT format")
	ErrNoExpirationClaim = errors.New("no expiration claim found")
	ErrEmptyToken        = errors.New("token must not be empty")
	ErrNoHomeDirectory   = errors.New("could not determine home directory")
)

// CLI errors.
var (
	ErrNoAPIConfigured   = errors.New("no API configured, use --api or set RECAPI_BASE_ADDRESS")
	ErrUnsupportedOutput = errors.New("unsupported output format")
	ErrImportFileEmpty   = errors.New("import file is empty")
	ErrInvalidParameter  = errors.New("parameter must be key=value")
)

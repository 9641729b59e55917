package domain

import "errors"

var (
	ErrConfiguration         = errors.New("configuration error")
	ErrSessionAcquisition    = errors.New("browser session could not be acquired")
	ErrElementNotFound       = errors.New("element not found")
	ErrAuthenticationTimeout = errors.New("timed out waiting for login redirect")
	ErrAuthentication        = errors.New("authentication rejected")
	ErrWorkflowTimeout       = errors.New("renewal control not found")
	ErrStaleReference        = errors.New("stale element reference")
	ErrSecretNotFound        = errors.New("secret not found")
)

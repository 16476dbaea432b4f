package domain

import "errors"

var (
	ErrRunNotInProgress     = errors.New("backup run is not in progress")
	ErrRunNotFound          = errors.New("backup run not found")
	ErrSettingsNotFound     = errors.New("backup settings not found")
	ErrDataStoreUnavailable = errors.New("data store unavailable")
)

package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidDesignation = errors.New("INVALID_DESIGNATION")
	ErrInvalidCategory    = errors.New("INVALID_CATEGORY")
	ErrInvalidTitle       = errors.New("INVALID_TITLE")
	ErrInvalidID          = errors.New("INVALID_ID")
	ErrInvalidAmount      = errors.New("INVALID_AMOUNT")
	ErrAmountBelowMinimum = errors.New("AMOUNT_BELOW_MINIMUM")
	ErrImageRejected      = errors.New("IMAGE_REJECTED")
	ErrAssetUpload        = errors.New("ASSET_UPLOAD_FAILED")
	ErrAssetsDisabled     = errors.New("ASSETS_DISABLED")
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
)

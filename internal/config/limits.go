package config

// Input limits enforced by the HTTP layer before anything reaches the engine.
const (
	MaxNameLength        = 40
	MaxGiftNameLength    = 80
	MaxDescriptionLength = 500
	MaxRequestBodyBytes  = 16 << 10
)

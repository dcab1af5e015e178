package repository

import (
	"errors"

	"github.com/okian/hiscores/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("key not found")
	ErrInvalidKey       = errors.New("invalid key")
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrCorruptRecord is shared with the model decoder so errors.Is works on either.
	ErrCorruptRecord = model.ErrCorruptRecord
)

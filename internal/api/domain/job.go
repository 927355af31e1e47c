package domain

import (
	"errors"
)

// Job status values exposed through the API. Terminal states are DONE
// and FAILED.
const (
	JobStatusPending    = "PENDING"
	JobStatusProcessing = "PROCESSING"
	JobStatusDone       = "DONE"
	JobStatusFailed     = "FAILED"
)

// Asset kinds
const (
	AssetKindVideo = "VIDEO"
	AssetKindImage = "IMAGE"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrAssetNotFound   = errors.New("asset not found")
	ErrProjectNotFound = errors.New("project not found")
)

package domain

import "errors"

var (
	// ErrAssetNotFound signals that no locally cached image exists for
	// the requested id (never saved, save failed, or already evicted).
	ErrAssetNotFound = errors.New("image asset not found")
	// ErrUpstreamUnavailable signals a failed remote inference or search
	// call. Wrapping errors identify the originating call.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrBadImage signals undecodable request image data.
	ErrBadImage = errors.New("bad image data")
)

package repository

import "errors"

// Repository error kinds. Each wraps whatever failure the backend
// adapter surfaced; callers match with errors.Is and decide whether to
// surface or re-invoke. No retry or compensation happens here.
var (
	// ErrRemoteRead indicates a failed document listing or read.
	ErrRemoteRead = errors.New("remote read failed")

	// ErrRemoteWrite indicates a failed document create, update, or delete.
	ErrRemoteWrite = errors.New("remote write failed")

	// ErrUpload indicates a failed blob upload.
	ErrUpload = errors.New("file upload failed")

	// ErrDelete indicates a failed blob deletion.
	ErrDelete = errors.New("file deletion failed")
)

// Package errs defines common error variables used across the application.
package errs

import "errors"

// Request errors.
var (
	// ErrEmptyURL indicates that no URL was entered or passed in.
	ErrEmptyURL = errors.New("url cannot be empty")
	// ErrUnsupportedMediaType indicates that the media type is not one of the supported variants.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrCancelled indicates that the user interrupted the interactive input.
	ErrCancelled = errors.New("cancelled by user")
)

// Downloader errors.
var (
	// ErrDownloadFailed indicates that the download library could not complete the transfer.
	ErrDownloadFailed = errors.New("download failed")
	// ErrInvalidOptions indicates that the options handed to the download library are malformed.
	ErrInvalidOptions = errors.New("invalid download options")
	// ErrNoHealthyProxy indicates that every configured proxy failed its health check.
	ErrNoHealthyProxy = errors.New("no healthy proxies available")
)

// Dependency errors.
var (
	// ErrBinaryNotFound indicates that the required binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

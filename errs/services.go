package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Storage & Third-Party Service Errors
var (
	ErrStorageUpload      = errors.New("storage upload failed")
	ErrStorageQuotaFull   = errors.New("storage quota full")
	ErrServiceUnreachable = errors.New("service unreachable")
	ErrNotification       = errors.New("notification failed")
)

var ErrConfigInvalid = errors.New("configuration invalid")

func NewStorageError(bucket string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrStorageUpload,
		Details:    fmt.Sprintf("Upload to bucket %s failed", bucket),
		Cause:      cause,
		Field:      "storage",
	}
}

func NewStorageQuotaFullError(bucket string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInsufficientStorage,
		err:        ErrStorageQuotaFull,
		Details:    fmt.Sprintf("Storage quota full for bucket %s", bucket),
		Field:      "storage",
	}
}

func NewServiceUnreachableError(service string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrServiceUnreachable,
		Details:    fmt.Sprintf("Service %s is unreachable", service),
		Cause:      cause,
	}
}

func NewNotificationError(channel string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrNotification,
		Details:    fmt.Sprintf("Failed to notify via %s", channel),
		Cause:      cause,
	}
}

func NewConfigError(configName string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfigInvalid,
		Details:    fmt.Sprintf("Invalid configuration: %s", configName),
		Cause:      cause,
		Field:      "config",
	}
}

func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageUpload) || errors.Is(err, ErrStorageQuotaFull)
}

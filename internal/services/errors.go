package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool      = errors.New("external tool error")
	ErrMissingDependency = errors.New("missing dependency")
	ErrMalformedAsset    = errors.New("malformed asset")
	ErrFileSystem        = errors.New("file system error")
	ErrTimeout           = errors.New("timeout")
	ErrValidation        = errors.New("validation error")
)

// Kind is the coarse failure class recorded in batch history and shown by the CLI.
type Kind string

const (
	KindNone              Kind = ""
	KindExternalTool      Kind = "external_tool"
	KindMissingDependency Kind = "missing_dependency"
	KindMalformedAsset    Kind = "malformed_asset"
	KindFileSystem        Kind = "file_system"
	KindTimeout           Kind = "timeout"
	KindValidation        Kind = "validation"
	KindUnknown           Kind = "unknown"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to its failure kind. Timeouts win over the external
// tool marker they usually travel with.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrMissingDependency):
		return KindMissingDependency
	case errors.Is(err, ErrMalformedAsset):
		return KindMalformedAsset
	case errors.Is(err, ErrFileSystem):
		return KindFileSystem
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	default:
		return KindUnknown
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

package pipeline

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDownloadTimeout   = errors.New("download did not arrive")
	ErrPageTimeout       = errors.New("listing container not present")
	ErrAlreadyNormalized = errors.New("artifact already normalized")
)

// ErrorKind tags a failed item outcome.
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindExtraction ErrorKind = "extraction"
	KindExport     ErrorKind = "export"
	KindDownload   ErrorKind = "download"
	KindStructure  ErrorKind = "structure"
	KindNormalize  ErrorKind = "normalize"
	KindPanic      ErrorKind = "panic"
	KindSession    ErrorKind = "session"
)

// ExtractionError is returned for a listing entry whose identifier or export
// control could not be read.
type ExtractionError struct {
	Page  int
	Index int
	// Field is "id" or "export-control".
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s of entry %d on page %d: %v", e.Field, e.Index, e.Page, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

type TriggerStep string

const (
	StepExportLink TriggerStep = "export-link"
	StepModal      TriggerStep = "modal"
	StepConsent    TriggerStep = "consent"
	StepSnapshot   TriggerStep = "snapshot"
	StepConfirm    TriggerStep = "confirm"
)

type TriggerErrorKind int

const (
	ElementNotFound TriggerErrorKind = iota
	ModalNotShown
	SnapshotFailed
)

func (k TriggerErrorKind) String() string {
	switch k {
	case ElementNotFound:
		return "element not found"
	case ModalNotShown:
		return "modal not shown"
	case SnapshotFailed:
		return "snapshot failed"
	default:
		return fmt.Sprintf("TriggerErrorKind(%d)", int(k))
	}
}

// ExportTriggerError is returned when any step of the export sequence fails.
type ExportTriggerError struct {
	Step TriggerStep
	Kind TriggerErrorKind
	Err  error
}

func (e *ExportTriggerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("export trigger: %s: %s", e.Step, e.Kind)
	}
	return fmt.Sprintf("export trigger: %s: %s: %v", e.Step, e.Kind, e.Err)
}

func (e *ExportTriggerError) Unwrap() error {
	return e.Err
}

type DownloadTimeoutError struct {
	Dir     string
	Timeout time.Duration
}

func (e *DownloadTimeoutError) Error() string {
	return fmt.Sprintf("no new file in %s after %s", e.Dir, e.Timeout)
}

func (e *DownloadTimeoutError) Is(target error) bool {
	return target == ErrDownloadTimeout
}

// StructureError is returned when an artifact's top level value is not a
// JSON array, the file is left as is.
type StructureError struct {
	Path string
	// Found is the kind of top level value, "object", "string", "invalid"...
	Found string
	Err   error
}

func (e *StructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: expected a json array, found %s: %v", e.Path, e.Found, e.Err)
	}
	return fmt.Sprintf("%s: expected a json array, found %s", e.Path, e.Found)
}

func (e *StructureError) Unwrap() error {
	return e.Err
}

type PageTimeoutError struct {
	Page    int
	Timeout time.Duration
}

func (e *PageTimeoutError) Error() string {
	return fmt.Sprintf("page %d: listing container not present after %s", e.Page, e.Timeout)
}

func (e *PageTimeoutError) Is(target error) bool {
	return target == ErrPageTimeout
}

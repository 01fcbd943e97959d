// Package statement turns bank-exported statement files into normalized
// ledger rows: it resolves the month each file belongs to, parses the
// tabular content and applies the session's title rules.
package statement

import (
	"errors"
	"fmt"

	"contas/internal/core"
)

// UnresolvedMonth marks a file whose month could not be determined.
const UnresolvedMonth core.Month = -1

type (
	// UploadFile is one file of an import batch. Month is the user's
	// explicit selection; nil means infer it from the file name.
	UploadFile struct {
		Index    int
		FileName string
		MIMEType string
		Data     []byte
		Month    *core.Month
		Paid     bool
	}

	// Row is one transaction as read from a statement file.
	Row struct {
		Title  string
		Amount core.Money
		Date   string
	}

	// UploadListItem is a normalized transaction ready to be persisted.
	UploadListItem struct {
		Index    int
		FileName string
		Month    core.Month
		Paid     bool
		Title    string
		Amount   core.Money
		Date     string
	}

	ReplaceWordRule struct {
		Before string `mapstructure:"before" json:"before" yaml:"before"`
		After  string `mapstructure:"after" json:"after" yaml:"after"`
	}

	// Rules is the per-session title configuration.
	Rules struct {
		ReplaceWords []ReplaceWordRule `mapstructure:"replaceWords" json:"replaceWords" yaml:"replaceWords"`
		IgnoreWords  []string          `mapstructure:"ignoreWords" json:"ignoreWords" yaml:"ignoreWords"`
	}
)

var (
	ErrEmptyBatch         = errors.New("no files to import")
	ErrUnresolvedMonth    = errors.New("month could not be resolved")
	ErrDuplicateMonth     = errors.New("month claimed by more than one file")
	ErrUnsupportedFormat  = errors.New("unsupported statement format")
	ErrNoTransactions     = errors.New("no transactions found")
	ErrMissingTitleColumn = errors.New("statement has no title column")
	ErrEmptyReplacement   = errors.New("replace rule has an empty replacement")
)

// FileError ties a batch error to the file that caused it.
type FileError struct {
	Index    int
	FileName string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %d (%s): %v", e.Index, e.FileName, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// DuplicateMonthError reports two files of one batch resolving to the same month.
type DuplicateMonthError struct {
	Month  core.Month
	First  string
	Second string
}

func (e *DuplicateMonthError) Error() string {
	return fmt.Sprintf("%s claimed by both %s and %s", e.Month, e.First, e.Second)
}

func (e *DuplicateMonthError) Is(target error) bool {
	return target == ErrDuplicateMonth
}

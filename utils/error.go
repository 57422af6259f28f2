package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorConfigurationMissing is returned when a budget has no percentage
// configuration; the rollup step fails and nothing is written.
var ErrorConfigurationMissing = errors.New("budget percentage configuration missing")

// PartialWriteError reports a write that failed partway through a multi-item
// recalculation. Items written before the failure stay persisted; the caller
// can retry just the failed item through the targeted path.
type PartialWriteError struct {
	ItemId int
	Err    error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("item %d: write failed: %v", e.ItemId, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

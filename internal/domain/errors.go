package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrItemBusy          = errors.New("item is processing")
	ErrNotEditable       = errors.New("item not editable")
	ErrStoreFull         = errors.New("item limit reached")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrBatchInProgress   = errors.New("batch in progress")
	ErrUnknownScene      = errors.New("unknown scene")
	ErrNoResults         = errors.New("no completed results")
	ErrNotImage          = errors.New("not an image")
)

package ftsreader

import "golang.org/x/xerrors"

// ErrNotInitialized is returned by any File method that requires a
// successful parse when the model was constructed from a file that failed
// its magic check (spec §7: "downstream get_block calls fail with
// NotInitialized").
var ErrNotInitialized = xerrors.New("ftsreader: file model not initialized")

// ErrBlockNotFound is returned when a requested block name is absent from
// the directory. Per spec §7 this is a routine, non-fatal outcome.
var ErrBlockNotFound = xerrors.New("ftsreader: block not found")

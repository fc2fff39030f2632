package service

import "errors"

// ErrBadTransaction marks structurally invalid ledger input: the whole
// request is rejected rather than rows being silently dropped.
var ErrBadTransaction = errors.New("error invalid transaction")

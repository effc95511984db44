// navcache/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navcache

import "errors"

var (
	ErrTransactionDone = errors.New("Transaction already committed or rolled back")
	ErrTypeMismatch    = errors.New("Record has the wrong type for the update")
	ErrImmutableField  = errors.New("Record ident and type may not change")
)

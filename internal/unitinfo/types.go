// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the enumerations carried by a finalized UnitInfo.
//
// Why a second set of enums?
//
// The descriptor enums describe what a document may spell. These describe
// what the downstream data-access engine is handed. Mapping between them is
// explicit, so a value added to one side without the other fails loudly at
// synthesis instead of slipping through.
package unitinfo

import (
	"errors"
	"fmt"

	"github.com/vk/persistunits/internal/descriptor"
)

// ErrConfiguration reports a unit that cannot be finalized.
var ErrConfiguration = errors.New("persistence unit configuration error")

// TransactionType is the transaction model of a finalized unit.
type TransactionType int

const (
	JTA TransactionType = iota + 1
	ResourceLocal
)

func (t TransactionType) String() string {
	switch t {
	case JTA:
		return "JTA"
	case ResourceLocal:
		return "RESOURCE_LOCAL"
	}
	return fmt.Sprintf("TransactionType(%d)", int(t))
}

// SharedCacheMode is the cache policy of a finalized unit.
type SharedCacheMode int

const (
	CacheUnspecified SharedCacheMode = iota + 1
	CacheAll
	CacheNone
	CacheEnableSelective
	CacheDisableSelective
)

func (m SharedCacheMode) String() string {
	switch m {
	case CacheUnspecified:
		return "UNSPECIFIED"
	case CacheAll:
		return "ALL"
	case CacheNone:
		return "NONE"
	case CacheEnableSelective:
		return "ENABLE_SELECTIVE"
	case CacheDisableSelective:
		return "DISABLE_SELECTIVE"
	}
	return fmt.Sprintf("SharedCacheMode(%d)", int(m))
}

// ValidationMode is the validation policy of a finalized unit.
type ValidationMode int

const (
	ValidationAuto ValidationMode = iota + 1
	ValidationCallback
	ValidationNone
)

func (m ValidationMode) String() string {
	switch m {
	case ValidationAuto:
		return "AUTO"
	case ValidationCallback:
		return "CALLBACK"
	case ValidationNone:
		return "NONE"
	}
	return fmt.Sprintf("ValidationMode(%d)", int(m))
}

func mapTransactionType(t descriptor.TransactionType) (TransactionType, error) {
	switch t {
	case descriptor.TransactionJTA:
		return JTA, nil
	case descriptor.TransactionResourceLocal:
		return ResourceLocal, nil
	}
	return 0, fmt.Errorf("%w: unrecognized transaction type %s", ErrConfiguration, t)
}

func mapSharedCacheMode(m descriptor.SharedCacheMode) (SharedCacheMode, error) {
	switch m {
	case descriptor.CacheUnspecified:
		return CacheUnspecified, nil
	case descriptor.CacheAll:
		return CacheAll, nil
	case descriptor.CacheNone:
		return CacheNone, nil
	case descriptor.CacheEnableSelective:
		return CacheEnableSelective, nil
	case descriptor.CacheDisableSelective:
		return CacheDisableSelective, nil
	}
	return 0, fmt.Errorf("%w: unrecognized shared cache mode %s", ErrConfiguration, m)
}

func mapValidationMode(m descriptor.ValidationMode) (ValidationMode, error) {
	switch m {
	case descriptor.ValidationAuto:
		return ValidationAuto, nil
	case descriptor.ValidationCallback:
		return ValidationCallback, nil
	case descriptor.ValidationNone:
		return ValidationNone, nil
	}
	return 0, fmt.Errorf("%w: unrecognized validation mode %s", ErrConfiguration, m)
}

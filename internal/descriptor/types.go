// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines RawUnit, the plain-data form of one declared persistence
// unit, together with the enumerations a descriptor may use.
//
// Why keep a raw form at all?
//
// A descriptor only says what its author wrote. Merging in scanned types,
// binding a class loader and deferring data-source lookups all happen later,
// in unitinfo. Keeping the raw form separate lets that merge run against a
// value nobody else holds.
package descriptor

import (
	"database/sql"
	"net/url"
	"strconv"
	"strings"
)

// TransactionType is the transaction model declared for a unit.
type TransactionType int

const (
	TransactionJTA TransactionType = iota
	TransactionResourceLocal
)

func (t TransactionType) String() string {
	switch t {
	case TransactionJTA:
		return "JTA"
	case TransactionResourceLocal:
		return "RESOURCE_LOCAL"
	}
	return "TransactionType(" + strconv.Itoa(int(t)) + ")"
}

// ParseTransactionType parses the descriptor spelling of a transaction type.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.TrimSpace(s) {
	case "JTA":
		return TransactionJTA, nil
	case "RESOURCE_LOCAL":
		return TransactionResourceLocal, nil
	}
	return 0, schemaErrorf("unknown transaction-type %q", s)
}

// SharedCacheMode is the second-level cache policy declared for a unit.
type SharedCacheMode int

const (
	CacheUnspecified SharedCacheMode = iota
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
	return "SharedCacheMode(" + strconv.Itoa(int(m)) + ")"
}

// ParseSharedCacheMode parses the descriptor spelling of a cache mode.
func ParseSharedCacheMode(s string) (SharedCacheMode, error) {
	switch strings.TrimSpace(s) {
	case "UNSPECIFIED":
		return CacheUnspecified, nil
	case "ALL":
		return CacheAll, nil
	case "NONE":
		return CacheNone, nil
	case "ENABLE_SELECTIVE":
		return CacheEnableSelective, nil
	case "DISABLE_SELECTIVE":
		return CacheDisableSelective, nil
	}
	return 0, schemaErrorf("unknown shared-cache-mode %q", s)
}

// ValidationMode is the bean-validation policy declared for a unit.
type ValidationMode int

const (
	ValidationAuto ValidationMode = iota
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
	return "ValidationMode(" + strconv.Itoa(int(m)) + ")"
}

// ParseValidationMode parses the descriptor spelling of a validation mode.
func ParseValidationMode(s string) (ValidationMode, error) {
	switch strings.TrimSpace(s) {
	case "AUTO":
		return ValidationAuto, nil
	case "CALLBACK":
		return ValidationCallback, nil
	case "NONE":
		return ValidationNone, nil
	}
	return 0, schemaErrorf("unknown validation-mode %q", s)
}

// RawUnit is one declared unit after defaults have been applied.
type RawUnit struct {
	Name            string
	Description     string
	Provider        string // empty when the descriptor names none
	TransactionType TransactionType
	// Classes is the explicitly listed managed types, in declaration order.
	// Synthesis appends merged types to its own copy.
	Classes         []string
	MappingFiles    []string
	JarFileURLs     []*url.URL
	Properties      map[string]string
	SharedCacheMode SharedCacheMode
	ValidationMode  ValidationMode
	// ExcludeUnlistedClasses is nil when the descriptor is silent.
	ExcludeUnlistedClasses *bool
	JTADataSource          sql.NullString
	NonJTADataSource       sql.NullString
	SchemaVersion          string // empty when the root element carries no version
}

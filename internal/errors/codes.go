// Package errors provides centralized error code definitions for the
// incremental rebuild core, structured for machine-readable reporting.
package errors

// Error code constants organized by phase.
const (
	// ============================================================================
	// Hasher Errors (HSH###)
	// ============================================================================

	// HSH001 indicates a declaration could not be hashed because its AST
	// was incomplete or malformed
	HSH001 = "HSH001"

	// HSH002 indicates a position-stripping pass left residual position
	// data in the hash input
	HSH002 = "HSH002"

	// HSH003 indicates a hash mixer round produced a zero digest, which
	// can only happen on a programming error
	HSH003 = "HSH003"

	// ============================================================================
	// Mangler Errors (MAN###)
	// ============================================================================

	// MAN001 indicates mangling produced a collision between two distinct
	// declarations
	MAN001 = "MAN001"

	// MAN002 indicates an identity path could not be resolved to a raw
	// mangled name
	MAN002 = "MAN002"

	// MAN003 indicates an extend-mangling merge found conflicting member
	// keys
	MAN003 = "MAN003"

	// ============================================================================
	// Cache Store Errors (CCH###)
	// ============================================================================

	// CCH001 indicates the on-disk cache file could not be parsed
	CCH001 = "CCH001"

	// CCH002 indicates the cache schema version is unsupported
	CCH002 = "CCH002"

	// CCH003 indicates the cache is missing a required section
	CCH003 = "CCH003"

	// CCH004 indicates a cache write failed
	CCH004 = "CCH004"

	// ============================================================================
	// Relation/Usage Graph Errors (GRF###)
	// ============================================================================

	// GRF001 indicates a usage edge references a raw mangled name absent
	// from the cache
	GRF001 = "GRF001"

	// GRF002 indicates a cyclic graph was rejected where acyclicity was
	// required
	GRF002 = "GRF002"

	// ============================================================================
	// AST Diff Errors (DIF###)
	// ============================================================================

	// DIF001 indicates the previous and current ASTs could not be aligned
	// by raw mangled name
	DIF001 = "DIF001"

	// DIF002 indicates a declaration kind changed in a way the differ
	// cannot classify
	DIF002 = "DIF002"

	// ============================================================================
	// Pollution Analyser Errors (POL###)
	// ============================================================================

	// POL001 indicates the propagation walk did not reach a fixed point
	// within the iteration budget
	POL001 = "POL001"

	// POL002 indicates a record entered an invalid state transition
	POL002 = "POL002"

	// ============================================================================
	// Semantic-Usage Collector Errors (USG###)
	// ============================================================================

	// USG001 indicates a usage site could not be attributed to an
	// enclosing declaration
	USG001 = "USG001"

	// USG002 indicates conflicting usage records for the same site
	USG002 = "USG002"

	// ============================================================================
	// CHIR Errors (CHR###)
	// ============================================================================

	// CHR001 indicates a vtable slot lookup failed for a (type, interface)
	// pair
	CHR001 = "CHR001"

	// CHR002 indicates devirtualization could not prove a unique concrete
	// callee
	CHR002 = "CHR002"

	// CHR003 indicates an operator-splitting rule had no matching overflow
	// mode
	CHR003 = "CHR003"

	// ============================================================================
	// IR Merge Errors (MRG###)
	// ============================================================================

	// MRG001 indicates an obsoleted declaration was still referenced after
	// the transitive-user sweep
	MRG001 = "MRG001"

	// MRG002 indicates a value-map fill found an unresolved forward
	// reference
	MRG002 = "MRG002"

	// MRG003 indicates reflection-table rebuild found a dangling entry
	MRG003 = "MRG003"
)

// ErrorInfo provides structured information about an error code.
type ErrorInfo struct {
	Code        string
	Phase       string
	Category    string
	Description string
}

// ErrorRegistry maps error codes to their information.
var ErrorRegistry = map[string]ErrorInfo{
	HSH001: {HSH001, "hasher", "structure", "Declaration could not be hashed"},
	HSH002: {HSH002, "hasher", "determinism", "Residual position data in hash input"},
	HSH003: {HSH003, "hasher", "internal", "Hash mixer produced zero digest"},

	MAN001: {MAN001, "mangle", "collision", "Mangled name collision"},
	MAN002: {MAN002, "mangle", "resolution", "Identity path unresolved"},
	MAN003: {MAN003, "mangle", "merge", "Extend-mangling member conflict"},

	CCH001: {CCH001, "cachestore", "parse", "Cache file could not be parsed"},
	CCH002: {CCH002, "cachestore", "schema", "Unsupported cache schema version"},
	CCH003: {CCH003, "cachestore", "structure", "Cache missing required section"},
	CCH004: {CCH004, "cachestore", "io", "Cache write failed"},

	GRF001: {GRF001, "graph", "resolution", "Usage edge references unknown declaration"},
	GRF002: {GRF002, "graph", "cycle", "Cyclic graph rejected"},

	DIF001: {DIF001, "astdiff", "alignment", "Declarations could not be aligned"},
	DIF002: {DIF002, "astdiff", "classification", "Unclassifiable declaration-kind change"},

	POL001: {POL001, "pollution", "convergence", "Propagation did not reach fixed point"},
	POL002: {POL002, "pollution", "state", "Invalid record state transition"},

	USG001: {USG001, "usage", "attribution", "Usage site not attributable"},
	USG002: {USG002, "usage", "conflict", "Conflicting usage records"},

	CHR001: {CHR001, "chir", "vtable", "Vtable slot lookup failed"},
	CHR002: {CHR002, "chir", "devirtualize", "No unique concrete callee"},
	CHR003: {CHR003, "chir", "operator", "No matching overflow mode"},

	MRG001: {MRG001, "irmerge", "obsoletion", "Obsoleted declaration still referenced"},
	MRG002: {MRG002, "irmerge", "valuemap", "Unresolved forward reference"},
	MRG003: {MRG003, "irmerge", "reflection", "Dangling reflection-table entry"},
}

// GetErrorInfo returns information about an error code.
func GetErrorInfo(code string) (ErrorInfo, bool) {
	info, exists := ErrorRegistry[code]
	return info, exists
}

// IsPhase reports whether code belongs to the given phase.
func IsPhase(code, phase string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == phase
}

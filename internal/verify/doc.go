// Package verify runs the Verify phase's three checks against a
// workspace: lint, type-check, and the import-preflight scanner, then
// normalizes their outputs into types.VerificationErrors. It also
// provides the Verify phase's two supplementary deltas: a
// design-consistency hex-color scan and a plain-language translation of
// common diagnostic codes.
package verify

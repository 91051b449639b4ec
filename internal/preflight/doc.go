// Package preflight provides readiness checks for the filesystem paths and
// library managers moversync depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs each failure as a warning;
//     it keeps running so a manager that comes back later is picked up by the
//     next sync.
//   - The CLI "moversync check" command prints every result and exits non-zero
//     when a required check fails.
//
// Optional checks (unconfigured managers, a cache list that has not been
// written yet) are reported but never fail the run.
package preflight

// Package preflight provides readiness checks for the filesystem paths and
// external tools showcopier depends on.
//
// These checks run in two contexts:
//   - The copy command calls RunAll before touching the library and refuses
//     to start when a required check fails.
//   - The "showcopier status" command calls the same checks to display
//     environment health.
package preflight

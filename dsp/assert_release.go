//go:build !hexodsp_debug

package dsp

// StrictAliasing is true when misuse of the buffer aliasing discipline panics
// instead of being corrected. Build with -tags hexodsp_debug to enable it.
const StrictAliasing = false

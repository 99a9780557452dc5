// Package printing contains the print-job model shared by the companion.
// A PrintJob describes what a web page asked to have printed: which URL
// to load, the fixed paper size to render at and which element on the
// page holds the printable content. A PrintRequest is the narrower
// submission the preview surface sends when the user presses print.
package printing

// Package internalcheck holds static policy tests for the corosync bindings.
//
// The tests load the module's packages with golang.org/x/tools/go/packages
// and fail on code that breaks a binding-wide rule, such as importing unsafe
// outside the native backend or handing message payloads to a logger. The
// package has no API.
package internalcheck

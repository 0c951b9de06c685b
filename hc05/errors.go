package hc05

import "errors"

var (
	// ErrNoDialer is returned when a Module is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// open the serial link to the module.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a
	// Module that has no transport.
	//
	// This can occur if the Dialer returned a nil Transport or if the
	// Module was not created via New.
	ErrNotInitialized = errors.New("module not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Module that has
	// already been closed.
	ErrAlreadyClosed = errors.New("module already closed")

	// ErrModuleNotFound is returned by Configure when the module did not
	// answer on any candidate baud rate. No provisioning command is sent.
	ErrModuleNotFound = errors.New("module not found on any baud rate")

	// ErrNotConfigured is returned by Connect when Configure has not
	// completed successfully.
	ErrNotConfigured = errors.New("module not configured")

	// ErrNotConnected is returned by Send and Receive when the link is not
	// in the connected state.
	ErrNotConnected = errors.New("link not connected")

	// ErrLinkLost is returned by Receive when the module reports that the
	// remote device went away.
	//
	// Callers typically run Connect again to re-establish the link.
	ErrLinkLost = errors.New("link lost")

	// ErrInvalidScanUnits is returned when the master inquiry duration is
	// outside the range accepted by the module (1 to 48 units of 1.28s).
	ErrInvalidScanUnits = errors.New("inquiry duration out of range")
)

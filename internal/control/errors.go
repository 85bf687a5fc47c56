package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/muurk/dante-control/internal/protocol"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a socket-level error (refused, unreachable, ...)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the device did not answer before the deadline
	ErrTypeTimeout
	// ErrTypeDeviceRejected indicates the device answered with a non-OK status
	ErrTypeDeviceRejected
	// ErrTypeVersionParse indicates an unrecognized protocol version string
	ErrTypeVersionParse
	// ErrTypeNonASCIIName indicates a device or channel name outside ASCII
	ErrTypeNonASCIIName
	// ErrTypeUnknownDevice indicates a device name absent from the registry
	ErrTypeUnknownDevice
	// ErrTypeValidation indicates any other invalid argument (address, index, length)
	ErrTypeValidation
	// ErrTypeProtocol indicates a reply that could not be decoded
	ErrTypeProtocol
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorConnectionRefused
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeDeviceRejected:
		return "Device Rejected"
	case ErrTypeVersionParse:
		return "Version Error"
	case ErrTypeNonASCIIName:
		return "Non-ASCII Name"
	case ErrTypeUnknownDevice:
		return "Unknown Device"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeProtocol:
		return "Protocol Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ControlError is the outcome of a failed subscribe, clear or query request
type ControlError struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	DeviceIP       string              // Receiver address (for context)
	Status         uint16              // Device status code for ErrTypeDeviceRejected
}

// Error implements the error interface
func (e *ControlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ControlError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a typed error
func ClassifyNetworkError(err error, deviceIP string) *ControlError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &ControlError{
			Type:     ErrTypeTimeout,
			Message:  "no reply from device",
			Err:      err,
			DeviceIP: deviceIP,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &ControlError{
				Type:           ErrTypeNetwork,
				Message:        "device refused the datagram (port unreachable)",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				DeviceIP:       deviceIP,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &ControlError{
				Type:           ErrTypeNetwork,
				Message:        "host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				DeviceIP:       deviceIP,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &ControlError{
				Type:           ErrTypeNetwork,
				Message:        "network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				DeviceIP:       deviceIP,
			}
		}
	}

	return &ControlError{
		Type:           ErrTypeNetwork,
		Message:        "network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		DeviceIP:       deviceIP,
	}
}

// NewRejectedError creates the error for a device reply with a non-OK status
func NewRejectedError(deviceIP string, status uint16) *ControlError {
	return &ControlError{
		Type:     ErrTypeDeviceRejected,
		Message:  protocol.StatusText(status),
		DeviceIP: deviceIP,
		Status:   status,
	}
}

// NewUnknownDeviceError creates the error for a name missing from the registry
func NewUnknownDeviceError(name string) *ControlError {
	return &ControlError{
		Type:    ErrTypeUnknownDevice,
		Message: fmt.Sprintf("no device named %q has been discovered", name),
	}
}

// NewValidationError creates a validation error. Typed protocol errors map to
// their own categories.
func NewValidationError(message string, err error) *ControlError {
	t := ErrTypeValidation
	switch {
	case errors.Is(err, protocol.ErrVersionParse):
		t = ErrTypeVersionParse
	case errors.Is(err, protocol.ErrNonASCIIName):
		t = ErrTypeNonASCIIName
	}
	return &ControlError{
		Type:    t,
		Message: message,
		Err:     err,
	}
}

// NewProtocolError creates an error for an undecodable reply
func NewProtocolError(deviceIP string, err error) *ControlError {
	return &ControlError{
		Type:     ErrTypeProtocol,
		Message:  "unexpected reply from device",
		Err:      err,
		DeviceIP: deviceIP,
	}
}

// TypeOf returns the category of err, and false if err is not a ControlError
func TypeOf(err error) (ErrorType, bool) {
	var ce *ControlError
	if errors.As(err, &ce) {
		return ce.Type, true
	}
	return 0, false
}

func isType(err error, types ...ErrorType) bool {
	t, ok := TypeOf(err)
	if !ok {
		return false
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// IsNetworkError checks if an error is a network error (including timeout)
func IsNetworkError(err error) bool {
	return isType(err, ErrTypeNetwork, ErrTypeTimeout)
}

// IsTimeout checks if the device did not answer in time
func IsTimeout(err error) bool {
	return isType(err, ErrTypeTimeout)
}

// IsDeviceRejected checks if the device answered with a failure status
func IsDeviceRejected(err error) bool {
	return isType(err, ErrTypeDeviceRejected)
}

// IsUnknownDevice checks if a device name could not be resolved
func IsUnknownDevice(err error) bool {
	return isType(err, ErrTypeUnknownDevice)
}

// IsValidationError checks if an error was raised before any network I/O
func IsValidationError(err error) bool {
	return isType(err, ErrTypeValidation, ErrTypeVersionParse, ErrTypeNonASCIIName)
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	var ce *ControlError
	if !errors.As(err, &ce) {
		return "An unexpected error occurred. Please try again."
	}

	switch ce.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The device did not respond in time.",
			"Troubleshooting:",
			"  • Check that the receiver is powered on and on this network",
			"  • Confirm the protocol version matches the device firmware",
			"  • Check that UDP port 4440 is not filtered",
			"  • Try increasing the control timeout",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}
		switch ce.NetworkSubtype {
		case NetworkErrorConnectionRefused:
			hint = append(hint,
				"The host answered but nothing is listening on the control port.",
				"Troubleshooting:",
				"  • Verify the address belongs to a Dante device",
				"  • Check the control port override in your configuration")
		case NetworkErrorHostUnreachable:
			hint = append(hint,
				"The device is not reachable on the network.",
				"Troubleshooting:",
				"  • Verify the receiver IP address is correct",
				"  • Try pinging the device: ping "+ce.DeviceIP)
		case NetworkErrorNetworkUnreachable:
			hint = append(hint,
				"Your computer has no route to the device's network.",
				"Troubleshooting:",
				"  • Check your network adapter settings",
				"  • Select the Dante interface in the configuration")
		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the device is powered on")
		}
		return strings.Join(hint, "\n")

	case ErrTypeDeviceRejected:
		return strings.Join([]string{
			fmt.Sprintf("The device rejected the request (%s, status 0x%04x).", ce.Message, ce.Status),
			"Troubleshooting:",
			"  • Check the transmitter device and channel names (case-sensitive)",
			"  • Check the receiver channel index and the version's index base",
			"  • Use `dante-cli list-devices -d` to see advertised channels",
		}, "\n")

	case ErrTypeVersionParse:
		return "Supported protocol versions are 4.2.1.3 and 4.4.1.3."

	case ErrTypeNonASCIIName:
		return "Dante device and channel names must be plain ASCII."

	case ErrTypeUnknownDevice:
		return "Run discovery first, or address the receiver by IP."

	case ErrTypeValidation:
		return "The request arguments are invalid. Check the error message for details."

	case ErrTypeProtocol:
		return "The device sent a reply that could not be decoded. Check the protocol version."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var ce *ControlError
	if !errors.As(err, &ce) {
		return err.Error()
	}

	switch ce.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeNetwork:
		switch ce.NetworkSubtype {
		case NetworkErrorConnectionRefused:
			return "Device refused the request - wrong address?"
		case NetworkErrorHostUnreachable:
			return "Device unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check interface"
		default:
			return "Network error - check connection"
		}
	case ErrTypeDeviceRejected:
		return fmt.Sprintf("Device rejected request: %s", ce.Message)
	default:
		if ce.Err != nil {
			return fmt.Sprintf("%s: %v", ce.Message, ce.Err)
		}
		return ce.Message
	}
}

// Package manager combines discovery, the device registry and the control
// client behind one DeviceManager.
//
// Callers create a manager per session; there is no global instance. The
// manager lets control requests address receivers by discovered name as well
// as by IP, and after a device acknowledges a subscribe or clear it updates
// the receiver channel entry in the registry so descriptions stay current.
package manager

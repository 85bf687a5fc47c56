// Package control sends subscription requests to Dante receivers.
//
// A Client validates its arguments, encodes one request frame with the
// internal/protocol codec for the chosen version, sends it as a single UDP
// datagram to the receiver's control port and waits for the reply carrying
// the same transaction id. Replies with other transaction ids are ignored.
// There are no retries.
//
// # Operations
//
//	client := control.NewClient()
//
//	// subscribe receiver channel 2 of 10.0.0.5 to Out3@Mixer1
//	err := client.MakeSubscription("4.4.1.3", "10.0.0.5", 2, "Mixer1", "Out3")
//
//	// clear it again; clearing an empty channel also succeeds
//	err = client.ClearSubscription("4.4.1.3", "10.0.0.5", 2)
//
//	// read the receiver channel table
//	channels, err := client.QueryReceiverChannels("4.4.1.3", "10.0.0.5")
//
// Receiver channel indices are 0-based for 4.2.1.3 and 1-based for 4.4.1.3.
//
// # Validation
//
// Arguments are checked in a fixed order before any socket is opened:
// protocol version, receiver IPv4 address, ASCII names, name length, channel
// index. A request that fails validation never reaches the network.
//
// # Error Handling
//
// Every failure is a *ControlError whose Type classifies it:
//
//	ErrTypeVersionParse    unknown version string
//	ErrTypeNonASCIIName    device or channel name outside ASCII
//	ErrTypeValidation      bad address, index or name length
//	ErrTypeUnknownDevice   name lookup failed (raised by the manager)
//	ErrTypeTimeout         no matching reply before Client.Timeout
//	ErrTypeNetwork         socket error, see NetworkSubtype
//	ErrTypeDeviceRejected  non-OK reply, see Status
//	ErrTypeProtocol        reply could not be decoded
//
// GetShortErrorMessage and GetTroubleshootingHint turn these into CLI output.
//
// # Thread Safety
//
// Each request uses its own socket, so a Client may be shared freely.
package control

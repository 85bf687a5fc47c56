// Package protocol implements the Dante audio routing control (ARC) wire format.
//
// This package handles encoding, decoding and validation of the binary messages a
// controller exchanges with a Dante receiver to create, clear and inspect
// receiver-channel subscriptions. It performs no I/O; see the control package for
// the UDP client that uses it.
//
// # Frame Overview
//
// Every message starts with a 10-byte big-endian header:
//   - Protocol ID: 2 bytes (depends on the protocol version)
//   - Length: 2 bytes (total frame length including the header)
//   - Transaction ID: 2 bytes (echoed by the device in its reply)
//   - Opcode: 2 bytes (0x3000 query, 0x3010 subscribe, 0x3014 clear)
//   - Status: 2 bytes (zero in requests, result code in replies)
//
// The body that follows depends on the opcode and on the protocol version.
// Variable-length names are NUL-terminated ASCII strings referenced by 16-bit
// offsets measured from the start of the frame.
//
// # Versions
//
// Two release lines are supported and modelled as the closed Version enum:
//
//	v, err := protocol.ParseVersion("4.4.1.3")
//	if err != nil {
//	    // errors.Is(err, protocol.ErrVersionParse)
//	}
//
// Each Version has a Profile describing its control port, protocol ID and the
// index base callers use for receiver channels (0 for 4.2.1.3, 1 for 4.4.1.3).
// Channel numbers on the wire are always 1-based.
//
// # Usage Example - Encoding
//
//	frame, err := protocol.Encode(protocol.Version4413, protocol.GenerateTransactionID(),
//	    &protocol.SubscribeRequest{RxChannel: 2, TxDevice: "Mixer1", TxChannel: "Out3"})
//
// # Usage Example - Decoding
//
//	reply, err := protocol.Decode(protocol.Version4413, data)
//	if err != nil {
//	    return err
//	}
//	if !reply.OK() {
//	    fmt.Println(protocol.StatusText(reply.Header.Status))
//	}
//
// # Thread Safety
//
// All encoding and decoding functions are stateless and safe for concurrent use.
// Transaction ID generation uses atomic operations.
package protocol

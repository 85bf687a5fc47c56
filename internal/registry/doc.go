// Package registry holds the devices found by discovery.
//
// A Registry maps advertised device names to DeviceRecords. Discovery feeds it
// Facts, one per service advertisement, and Merge folds each fact into the
// device's record: scalar fields take the latest non-empty value, while
// addresses, ports and transmitter channels accumulate. Records are never
// dropped because a device stops answering; only Clear removes them.
//
// All reads return deep copies taken under the registry lock, so callers may
// keep and modify what they get back without racing discovery.
package registry

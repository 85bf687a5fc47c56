// Package monitor serves the device registry as a live JSON feed.
//
// The feed is a websocket at /ws. A client receives one snapshot message on
// connect and another each time the registry generation changes; the
// registry is polled every Config.Interval and an unchanged generation sends
// nothing. /devices returns the current snapshot once over plain HTTP.
//
// Snapshot message:
//
//	{
//	  "type": "snapshot",
//	  "generation": 12,
//	  "timestamp": "2025-03-01T12:00:00Z",
//	  "devices": [
//	    {"name": "Amp", "primary_ip": "10.0.0.5", "transmitter_channels": [],
//	     "receiver_channels": [{"index": 2, "tx_device": "Mixer1", "tx_channel": "Out3", "active": true}]}
//	  ]
//	}
//
// The server never writes to the registry. Client messages are read only to
// detect disconnects and pongs.
package monitor

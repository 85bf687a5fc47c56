package protocol

import (
	"encoding/hex"
	"errors"

	"github.com/muurk/dante-control/internal/logging"
	"go.uber.org/zap"
)

// Receiver is the device side of the control protocol. Implementations
// return a status code that is echoed in the reply header.
type Receiver interface {
	Subscribe(rx int, txDevice, txChannel string) uint16
	Clear(rx int) uint16
	ReceiverChannels(start, count int) ([]ReceiverChannel, uint16)
}

// HandleRequest decodes a request frame, dispatches it to r and returns the
// reply frame. A nil reply with a nil error means the datagram is not for us
// and should be dropped without answering.
func HandleRequest(v Version, remoteAddr string, data []byte, r Receiver) ([]byte, error) {
	h, req, err := DecodeRequest(v, data)
	if err != nil {
		if errors.Is(err, ErrVersionParse) {
			return nil, err
		}
		logging.Warn("Dropping malformed request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
			zap.String("hex", hex.EncodeToString(data)),
		)
		return nil, nil
	}

	logging.Debug("Request received",
		zap.String("remote_addr", remoteAddr),
		zap.String("header", h.String()),
	)

	switch req := req.(type) {
	case *SubscribeRequest:
		status := r.Subscribe(req.RxChannel, req.TxDevice, req.TxChannel)
		return EncodeReply(v, h.TransactionID, OpcodeSubscribe, status)

	case *ClearRequest:
		status := r.Clear(req.RxChannel)
		return EncodeReply(v, h.TransactionID, OpcodeClear, status)

	case *ReceiverQuery:
		channels, status := r.ReceiverChannels(req.Start, ReceiverPageSize)
		return EncodeReceiverPage(v, h.TransactionID, status, channels)
	}

	return nil, nil
}

// Package batch reads subscription commands from a text file, one per line.
//
// A line either creates a subscription:
//
//	[Version|]TxChannel@TxDevice:RxIndex@Receiver
//
// or clears one:
//
//	[Version|]RxIndex@Receiver
//
// Receiver is an IPv4 address or a discovered device name. Blank lines and
// lines starting with # are skipped.
package batch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/dante-control/internal/logging"
)

// Parse errors
var (
	ErrVersionDelimiter = errors.New("could not detect | between the version and tx/rx devices")
	ErrTxRxDelimiter    = errors.New("could not detect : between the transmitting and receiving devices")
	ErrTxDelimiter      = errors.New("could not detect @ between the transmitting channel and device name")
	ErrRxDelimiter      = errors.New("could not detect @ between the receiving channel index and device name")
	ErrRxIndexParse     = errors.New("could not parse the receiving channel index into an integer")
)

// Command is one parsed batch line
type Command struct {
	LineNo    int
	Version   string
	Clear     bool
	TxChannel string
	TxDevice  string
	RxIndex   int
	Receiver  string
}

// String renders the command back in batch syntax
func (c Command) String() string {
	if c.Clear {
		return fmt.Sprintf("%s|%d@%s", c.Version, c.RxIndex, c.Receiver)
	}
	return fmt.Sprintf("%s|%s@%s:%d@%s", c.Version, c.TxChannel, c.TxDevice, c.RxIndex, c.Receiver)
}

// ParseLine parses one line. defaultVersion is used when the line has no
// "Version|" prefix; if it is empty such lines fail with ErrVersionDelimiter.
func ParseLine(line, defaultVersion string) (Command, error) {
	line = strings.TrimSpace(line)

	var cmd Command
	version, rest, ok := strings.Cut(line, "|")
	if ok {
		cmd.Version = strings.TrimSpace(version)
	} else {
		if defaultVersion == "" {
			return Command{}, ErrVersionDelimiter
		}
		cmd.Version = defaultVersion
		rest = line
	}

	rx := rest
	if strings.Contains(rest, ":") {
		tx, r, ok := strings.Cut(rest, ":")
		if !ok {
			return Command{}, ErrTxRxDelimiter
		}
		// channel names may contain '@', device names may not
		at := strings.LastIndex(tx, "@")
		if at < 0 {
			return Command{}, ErrTxDelimiter
		}
		cmd.TxChannel = tx[:at]
		cmd.TxDevice = tx[at+1:]
		rx = r
	} else {
		cmd.Clear = true
	}

	index, receiver, ok := strings.Cut(rx, "@")
	if !ok {
		return Command{}, ErrRxDelimiter
	}
	n, err := strconv.ParseUint(index, 10, 16)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %q", ErrRxIndexParse, index)
	}
	cmd.RxIndex = int(n)
	cmd.Receiver = receiver
	return cmd, nil
}

// Executor carries out parsed commands
type Executor interface {
	Subscribe(version, receiver string, rxIndex int, txDevice, txChannel string) error
	Clear(version, receiver string, rxIndex int) error
}

// LineError is a failure on one line of the input
type LineError struct {
	LineNo int
	Line   string
	Err    error
}

// Error implements the error interface
func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.LineNo, e.Err)
}

// Unwrap returns the underlying error
func (e *LineError) Unwrap() error {
	return e.Err
}

// Summary reports the outcome of Run
type Summary struct {
	Succeeded int
	Failed    []*LineError
}

// Err returns nil if every line succeeded, otherwise all line errors joined
func (s Summary) Err() error {
	if len(s.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(s.Failed))
	for i, f := range s.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Run executes r line by line. A failing line is recorded and processing
// continues with the next one. The returned error is only set when r itself
// cannot be read.
func Run(r io.Reader, defaultVersion string, exec Executor) (Summary, error) {
	var sum Summary
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cmd, err := ParseLine(line, defaultVersion)
		if err == nil {
			cmd.LineNo = lineNo
			if cmd.Clear {
				err = exec.Clear(cmd.Version, cmd.Receiver, cmd.RxIndex)
			} else {
				err = exec.Subscribe(cmd.Version, cmd.Receiver, cmd.RxIndex, cmd.TxDevice, cmd.TxChannel)
			}
		}

		if err != nil {
			logging.Warn("Batch line failed",
				zap.Int("line", lineNo),
				zap.String("text", line),
				zap.Error(err),
			)
			sum.Failed = append(sum.Failed, &LineError{LineNo: lineNo, Line: line, Err: err})
			continue
		}
		sum.Succeeded++
	}

	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("failed to read batch input: %w", err)
	}
	return sum, nil
}

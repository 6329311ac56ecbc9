package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for bridge messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for bridge messages.
var decMode cbor.DecMode

func init() {
	var err error

	// Configure encoder for deterministic output
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Configure decoder to be lenient for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encode encodes a message to CBOR bytes, validating it first.
func Encode(msg *Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return Marshal(msg)
}

// Decode decodes CBOR bytes into a message, validating the result.
// Malformed frames are reported as errors so the receiver can drop
// them without dispatching.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return &msg, nil
}

// PeekKind examines CBOR data and returns the message kind without
// fully validating the frame. Used for cheap dispatch decisions.
func PeekKind(data []byte) (Kind, error) {
	var peek struct {
		Kind Kind `cbor:"1,keyasint"`
	}
	if err := Unmarshal(data, &peek); err != nil {
		return 0, fmt.Errorf("failed to peek message: %w", err)
	}
	if !peek.Kind.IsValid() {
		return 0, fmt.Errorf("invalid message kind: %d", peek.Kind)
	}
	return peek.Kind, nil
}

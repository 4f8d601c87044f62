// Package eqiir implements the IIR equalizer module instance: a
// SourceSinkCore wiring internal/iir's biquad bank into the module
// lifecycle, grounded on eq_iir.c's comp_driver.
package eqiir

import (
	"encoding/binary"

	"github.com/opendsp/audiocore/internal/iir"
	"github.com/opendsp/audiocore/pkg/xerror"
)

// decodeConfig parses a configuration blob into an iir.Coefficients and
// the channel count it was built for, mirroring the shape of
// sof_eq_iir_config->data: an assign_response index per channel followed
// by a table of response definitions, each a list of biquad sections.
//
// Wire format:
//
//	byte 0:       channel count
//	byte 1:       number of responses
//	[channel count]  assign_response indices, 1 byte each (signed, -1 = bypass)
//	per response:
//	  byte:         section count
//	  int32 LE:     gain (Q2.30)
//	  per section:  b0, b1, b2, a1, a2 (int32 LE, Q2.30), shift (1 byte)
func decodeConfig(blob []byte) (*iir.Coefficients, int, error) {
	const op = "eqiir.decodeConfig"

	if len(blob) < 2 {
		return nil, 0, xerror.New(xerror.InvalidArg, op, nil)
	}

	channels := int(blob[0])
	numResponses := int(blob[1])
	pos := 2

	if channels <= 0 || channels > iir.MaxChannels {
		return nil, 0, xerror.New(xerror.InvalidArg, op, nil)
	}
	if pos+channels > len(blob) {
		return nil, 0, xerror.New(xerror.InvalidArg, op, nil)
	}

	assign := make([]int32, channels)
	for i := 0; i < channels; i++ {
		assign[i] = int32(int8(blob[pos]))
		pos++
	}

	responses := make([]iir.Response, numResponses)
	for r := 0; r < numResponses; r++ {
		if pos+1 > len(blob) {
			return nil, 0, xerror.New(xerror.InvalidArg, op, nil)
		}
		numSections := int(blob[pos])
		pos++

		if pos+4 > len(blob) {
			return nil, 0, xerror.New(xerror.InvalidArg, op, nil)
		}
		gain := int32(binary.LittleEndian.Uint32(blob[pos : pos+4]))
		pos += 4

		sections := make([]iir.Section, numSections)
		for s := 0; s < numSections; s++ {
			if pos+21 > len(blob) {
				return nil, 0, xerror.New(xerror.InvalidArg, op, nil)
			}
			sections[s] = iir.Section{
				B0:    int32(binary.LittleEndian.Uint32(blob[pos:])),
				B1:    int32(binary.LittleEndian.Uint32(blob[pos+4:])),
				B2:    int32(binary.LittleEndian.Uint32(blob[pos+8:])),
				A1:    int32(binary.LittleEndian.Uint32(blob[pos+12:])),
				A2:    int32(binary.LittleEndian.Uint32(blob[pos+16:])),
				Shift: uint(blob[pos+20]),
			}
			pos += 21
		}

		responses[r] = iir.Response{Sections: sections, Gain: gain}
	}

	return &iir.Coefficients{AssignResponse: assign, Responses: responses}, channels, nil
}

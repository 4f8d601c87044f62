// Package ipc implements the command header codec and trigger command
// set of spec.md §6: a fixed 8-byte little-endian header whose Cmd field
// packs a global type, command type, and monotonic id into one u32, plus
// a reply header carrying the taxonomy's error code, grounded on
// header.h's 0xGCCCNNNN layout.
package ipc

import (
	"encoding/binary"

	"github.com/opendsp/audiocore/pkg/xerror"
)

// HeaderSize is the wire size of a Header: { u32 size; u32 cmd }.
const HeaderSize = 8

// GlobalType is the 4-bit global message class (the G nibble of cmd).
type GlobalType uint8

const (
	GlobalModule GlobalType = iota
	GlobalStream
	GlobalDAI
	GlobalTrace
	GlobalPowerManagement
)

// CommandType is the 12-bit command within a GlobalType (the C field).
type CommandType uint16

const (
	CmdModuleInit CommandType = iota
	CmdModulePrepare
	CmdModuleTrigger
	CmdModuleSetConfig
	CmdModuleGetConfig
	CmdModuleBind
	CmdModuleUnbind
	CmdModuleFree
)

// Header is the 8-byte fixed command header preceding every IPC message
// payload: { u32 size; u32 cmd }, cmd = 0xGCCCNNNN.
type Header struct {
	Size uint32
	Cmd  uint32
}

// BuildCmd packs a global type, command type, and monotonic id into the
// 0xGCCCNNNN layout: G in bits 31:28, C in bits 27:16, N in bits 15:0.
func BuildCmd(global GlobalType, cmd CommandType, id uint16) uint32 {
	return uint32(global&0xF)<<28 | uint32(cmd&0xFFF)<<16 | uint32(id)
}

// Global extracts the 4-bit global type from a packed cmd value.
func (h Header) Global() GlobalType {
	return GlobalType((h.Cmd >> 28) & 0xF)
}

// Command extracts the 12-bit command type from a packed cmd value.
func (h Header) Command() CommandType {
	return CommandType((h.Cmd >> 16) & 0xFFF)
}

// ID extracts the 16-bit monotonic id from a packed cmd value.
func (h Header) ID() uint16 {
	return uint16(h.Cmd & 0xFFFF)
}

// Encode serializes a Header to its 8-byte little-endian wire form.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Size)
	binary.LittleEndian.PutUint32(buf[4:8], h.Cmd)
	return buf
}

// DecodeHeader parses an 8-byte little-endian Header off the front of buf.
func DecodeHeader(buf []byte) (Header, error) {
	const op = "ipc.DecodeHeader"
	if len(buf) < HeaderSize {
		return Header{}, xerror.New(xerror.InvalidArg, op, nil)
	}
	return Header{
		Size: binary.LittleEndian.Uint32(buf[0:4]),
		Cmd:  binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

// ReplySize is the wire size of a Reply header: Header plus i32 error.
const ReplySize = HeaderSize + 4

// Reply is the common reply layout: the originating Header echoed back
// plus a negative-errno-shaped error code (0 on success).
type Reply struct {
	Header Header
	Error  int32
}

// Encode serializes a Reply to its 12-byte little-endian wire form.
func (r Reply) Encode() []byte {
	buf := make([]byte, ReplySize)
	copy(buf[0:HeaderSize], r.Header.Encode())
	binary.LittleEndian.PutUint32(buf[HeaderSize:], uint32(r.Error))
	return buf
}

// DecodeReply parses a 12-byte little-endian Reply off the front of buf.
func DecodeReply(buf []byte) (Reply, error) {
	const op = "ipc.DecodeReply"
	if len(buf) < ReplySize {
		return Reply{}, xerror.New(xerror.InvalidArg, op, nil)
	}
	hdr, err := DecodeHeader(buf)
	if err != nil {
		return Reply{}, err
	}
	errVal := int32(binary.LittleEndian.Uint32(buf[HeaderSize:ReplySize]))
	return Reply{Header: hdr, Error: errVal}, nil
}

// codeErrno maps the error taxonomy onto the negative errno-shaped values
// a Reply's Error field carries, per spec.md §7's propagation policy.
var codeErrno = map[xerror.Code]int32{
	xerror.InvalidArg:   -22, // EINVAL
	xerror.InvalidState: -1,  // EPERM
	xerror.OutOfMemory:  -12, // ENOMEM
	xerror.Busy:         -16, // EBUSY
	xerror.NoData:       -61, // ENODATA
	xerror.XRun:         -5,  // EIO
	xerror.NotConnected: -107, // ENOTCONN
	xerror.NotSupported: -95, // EOPNOTSUPP
}

// ErrnoFor maps err onto the negative errno-shaped value a Reply carries.
// A nil err maps to 0; an error outside the taxonomy maps to a generic
// -EIO, since the reply wire format has no "unknown" slot.
func ErrnoFor(err error) int32 {
	if err == nil {
		return 0
	}
	for code, errno := range codeErrno {
		if xerror.Is(err, code) {
			return errno
		}
	}
	return -5
}

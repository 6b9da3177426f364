package netcmd

import (
	"errors"
	"fmt"

	"github.com/1ureka/lockstep/internal/wire"
)

// ArgType identifies the type of one GameCommand argument. The values are
// written on the wire.
type ArgType uint8

const (
	ArgInteger ArgType = iota
	ArgReal
	ArgBoolean
	ArgObjectID
	ArgDrawableID
	ArgTeamID
	ArgLocation
	ArgPixel
	ArgPixelRegion
	ArgTimestamp
	ArgWideChar

	numArgTypes
)

var argTypeNames = [numArgTypes]string{
	"Integer", "Real", "Boolean", "ObjectID", "DrawableID", "TeamID",
	"Location", "Pixel", "PixelRegion", "Timestamp", "WideChar",
}

var argSizes = [numArgTypes]int{
	ArgInteger:     4,
	ArgReal:        4,
	ArgBoolean:     1,
	ArgObjectID:    4,
	ArgDrawableID:  4,
	ArgTeamID:      4,
	ArgLocation:    3 * 4,
	ArgPixel:       2 * 4,
	ArgPixelRegion: 4 * 4,
	ArgTimestamp:   4,
	ArgWideChar:    2,
}

func (t ArgType) Valid() bool { return t < numArgTypes }

func (t ArgType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ArgType(%d)", uint8(t))
	}
	return argTypeNames[t]
}

// MaxArgRuns is the most runs of equally typed arguments a GameCommand can
// carry; the run count is a single byte.
const MaxArgRuns = 255

var (
	errArgType    = errors.New("invalid argument type")
	// ErrTooManyArgRuns is returned by Validate for arguments that need more
	// than MaxArgRuns runs.
	ErrTooManyArgRuns = fmt.Errorf("netcmd: more than %d argument runs", MaxArgRuns)
)

type Coord3D struct{ X, Y, Z float32 }

type ICoord2D struct{ X, Y int32 }

type IRegion2D struct{ Lo, Hi ICoord2D }

// Arg is one GameCommand argument. Only the field matching Type is set;
// ObjectID, DrawableID, TeamID and Timestamp all use ID.
type Arg struct {
	Type     ArgType
	Integer  int32
	Real     float32
	Boolean  bool
	ID       uint32
	Location Coord3D
	Pixel    ICoord2D
	Region   IRegion2D
	WideChar uint16
}

func IntArg(v int32) Arg             { return Arg{Type: ArgInteger, Integer: v} }
func RealArg(v float32) Arg          { return Arg{Type: ArgReal, Real: v} }
func BoolArg(v bool) Arg             { return Arg{Type: ArgBoolean, Boolean: v} }
func ObjectIDArg(v uint32) Arg       { return Arg{Type: ArgObjectID, ID: v} }
func DrawableIDArg(v uint32) Arg     { return Arg{Type: ArgDrawableID, ID: v} }
func TeamIDArg(v uint32) Arg         { return Arg{Type: ArgTeamID, ID: v} }
func LocationArg(v Coord3D) Arg      { return Arg{Type: ArgLocation, Location: v} }
func PixelArg(v ICoord2D) Arg        { return Arg{Type: ArgPixel, Pixel: v} }
func PixelRegionArg(v IRegion2D) Arg { return Arg{Type: ArgPixelRegion, Region: v} }
func TimestampArg(v uint32) Arg      { return Arg{Type: ArgTimestamp, ID: v} }
func WideCharArg(v uint16) Arg       { return Arg{Type: ArgWideChar, WideChar: v} }

func (a *Arg) encode(e *wire.Encoder) {
	switch a.Type {
	case ArgInteger:
		e.WriteInt32(a.Integer)
	case ArgReal:
		e.WriteFloat32(a.Real)
	case ArgBoolean:
		e.WriteBool(a.Boolean)
	case ArgObjectID, ArgDrawableID, ArgTeamID, ArgTimestamp:
		e.WriteUint32(a.ID)
	case ArgLocation:
		e.WriteFloat32(a.Location.X)
		e.WriteFloat32(a.Location.Y)
		e.WriteFloat32(a.Location.Z)
	case ArgPixel:
		e.WriteInt32(a.Pixel.X)
		e.WriteInt32(a.Pixel.Y)
	case ArgPixelRegion:
		e.WriteInt32(a.Region.Lo.X)
		e.WriteInt32(a.Region.Lo.Y)
		e.WriteInt32(a.Region.Hi.X)
		e.WriteInt32(a.Region.Hi.Y)
	case ArgWideChar:
		e.WriteUint16(a.WideChar)
	}
}

func decodeArg(d *wire.Decoder, t ArgType) (a Arg, err error) {
	a.Type = t
	switch t {
	case ArgInteger:
		a.Integer, err = d.ReadInt32()
	case ArgReal:
		a.Real, err = d.ReadFloat32()
	case ArgBoolean:
		a.Boolean, err = d.ReadBool()
	case ArgObjectID, ArgDrawableID, ArgTeamID, ArgTimestamp:
		a.ID, err = d.ReadUint32()
	case ArgLocation:
		a.Location.X, err = d.ReadFloat32()
		if err == nil {
			a.Location.Y, err = d.ReadFloat32()
		}
		if err == nil {
			a.Location.Z, err = d.ReadFloat32()
		}
	case ArgPixel:
		a.Pixel, err = readICoord2D(d)
	case ArgPixelRegion:
		a.Region.Lo, err = readICoord2D(d)
		if err == nil {
			a.Region.Hi, err = readICoord2D(d)
		}
	case ArgWideChar:
		a.WideChar, err = d.ReadUint16()
	default:
		err = errArgType
	}
	return a, err
}

func readICoord2D(d *wire.Decoder) (p ICoord2D, err error) {
	if p.X, err = d.ReadInt32(); err != nil {
		return p, err
	}
	p.Y, err = d.ReadInt32()
	return p, err
}

// argRun is a run of consecutive arguments of the same type.
type argRun struct {
	typ   ArgType
	count uint8
}

// runs groups args into runs of at most 255 equally typed arguments.
func runs(args []Arg) []argRun {
	var out []argRun
	for i := range args {
		t := args[i].Type
		if n := len(out); n > 0 && out[n-1].typ == t && out[n-1].count < 0xFF {
			out[n-1].count++
			continue
		}
		out = append(out, argRun{typ: t, count: 1})
	}
	return out
}

// GameCommand is a player order: a message type understood by the game logic
// plus its typed arguments.
type GameCommand struct {
	MessageType int32
	Args        []Arg
}

func (*GameCommand) Kind() Kind { return KindGameCommand }

// Validate reports whether the arguments can be encoded.
func (b *GameCommand) Validate() error {
	for i := range b.Args {
		if !b.Args[i].Type.Valid() {
			return fmt.Errorf("arg %d: %w", i, errArgType)
		}
	}
	if len(runs(b.Args)) > MaxArgRuns {
		return ErrTooManyArgRuns
	}
	return nil
}

// encodable returns the runs and args that are written. Arguments beyond
// MaxArgRuns runs are not encoded; senders reject that case through Validate.
func (b *GameCommand) encodable() ([]argRun, []Arg) {
	rs := runs(b.Args)
	if len(rs) <= MaxArgRuns {
		return rs, b.Args
	}
	rs = rs[:MaxArgRuns]
	n := 0
	for _, r := range rs {
		n += int(r.count)
	}
	return rs, b.Args[:n]
}

func (b *GameCommand) payloadSize() int {
	rs, args := b.encodable()
	n := 4 + 1 + 2*len(rs)
	for i := range args {
		if args[i].Type.Valid() {
			n += argSizes[args[i].Type]
		}
	}
	return n
}

func (b *GameCommand) encodePayload(e *wire.Encoder) {
	rs, args := b.encodable()
	e.WriteInt32(b.MessageType)
	e.WriteByte(uint8(len(rs)))
	for _, r := range rs {
		e.WriteByte(uint8(r.typ))
		e.WriteByte(r.count)
	}
	for i := range args {
		args[i].encode(e)
	}
}

func (b *GameCommand) decodePayload(d *wire.Decoder) (err error) {
	if b.MessageType, err = d.ReadInt32(); err != nil {
		return err
	}
	numRuns, err := d.ReadByte()
	if err != nil {
		return err
	}
	rs := make([]argRun, numRuns)
	total := 0
	for i := range rs {
		t, err := d.ReadByte()
		if err != nil {
			return err
		}
		c, err := d.ReadByte()
		if err != nil {
			return err
		}
		if !ArgType(t).Valid() {
			return errArgType
		}
		rs[i] = argRun{typ: ArgType(t), count: c}
		total += int(c)
	}
	if total == 0 {
		b.Args = nil
		return nil
	}
	b.Args = make([]Arg, 0, total)
	for _, r := range rs {
		for k := uint8(0); k < r.count; k++ {
			a, err := decodeArg(d, r.typ)
			if err != nil {
				return err
			}
			b.Args = append(b.Args, a)
		}
	}
	return nil
}

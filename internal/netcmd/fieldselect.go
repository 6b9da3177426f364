package netcmd

import "strings"

// FieldSelect is a bitmask of header fields physically present in one
// encoded command.
type FieldSelect uint8

const (
	UseType FieldSelect = 1 << iota
	UseRelay
	UseFrame
	UsePlayer
	UseID
)

// SelectAll has every header field set.
const SelectAll = UseType | UseRelay | UseFrame | UsePlayer | UseID

// Has reports whether every bit of f is set in s.
func (s FieldSelect) Has(f FieldSelect) bool {
	return s&f == f
}

func (s FieldSelect) String() string {
	if s == 0 {
		return "{}"
	}
	var parts []string
	for _, f := range []struct {
		bit  FieldSelect
		name string
	}{
		{UseType, "type"},
		{UseRelay, "relay"},
		{UseFrame, "frame"},
		{UsePlayer, "player"},
		{UseID, "id"},
	} {
		if s.Has(f.bit) {
			parts = append(parts, f.name)
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}

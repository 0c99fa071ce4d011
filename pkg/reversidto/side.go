package reversidto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Side is a seat color on the wire. It decodes from the numeric form (1 black, 2 white) as well
// as from names, and always encodes as a name.
type Side string

const (
	SideNone  Side = ""
	SideBlack Side = "black"
	SideWhite Side = "white"
)

func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "black", "b", "1":
		return SideBlack, nil
	case "white", "w", "2":
		return SideWhite, nil
	default:
		return SideNone, fmt.Errorf("invalid side %q", s)
	}
}

func (s *Side) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		switch n {
		case CellBlack:
			*s = SideBlack
			return nil
		case CellWhite:
			*s = SideWhite
			return nil
		}
		return fmt.Errorf("invalid side %d", n)
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("invalid side: %s", string(b))
	}
	if raw == "" {
		*s = SideNone
		return nil
	}
	v, err := ParseSide(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Cell returns the board code for the side.
func (s Side) Cell() int {
	switch s {
	case SideBlack:
		return CellBlack
	case SideWhite:
		return CellWhite
	default:
		return CellEmpty
	}
}

package models

import (
	"errors"
	"fmt"
)

// ErrUnknownTag is returned when a role or subrole is outside the vocabulary
var ErrUnknownTag = errors.New("unknown worker tag")

// Role is the coarse job category of a unit
type Role string

const (
	RoleUnset   Role = ""
	RoleWorker  Role = "worker"
	RoleSoldier Role = "soldier"
	RoleUnknown Role = "unknown"
)

// ParseRole validates a role name; the empty string parses to RoleUnset
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUnset, RoleWorker, RoleSoldier, RoleUnknown:
		return r, nil
	}
	return RoleUnset, fmt.Errorf("%w: role %q", ErrUnknownTag, s)
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Subrole is what a worker is currently doing
type Subrole string

const (
	SubroleUnset    Subrole = ""
	SubroleGatherer Subrole = "gatherer"
	SubroleBuilder  Subrole = "builder"
	SubroleIdle     Subrole = "idle"
)

// ParseSubrole validates a subrole name; the empty string parses to SubroleUnset
func ParseSubrole(s string) (Subrole, error) {
	switch r := Subrole(s); r {
	case SubroleUnset, SubroleGatherer, SubroleBuilder, SubroleIdle:
		return r, nil
	}
	return SubroleUnset, fmt.Errorf("%w: subrole %q", ErrUnknownTag, s)
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Subrole) UnmarshalText(text []byte) error {
	parsed, err := ParseSubrole(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

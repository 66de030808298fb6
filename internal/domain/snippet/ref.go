package snippet

import (
	"fmt"
	"strings"
)

// LocalIDPrefix marks identifiers minted by the local store.
const LocalIDPrefix = "local_"

type RefKind int

const (
	RefLocal RefKind = iota + 1
	RefRemote
)

// Ref points at a snippet in exactly one identifier space.
type Ref struct {
	kind RefKind
	id   string
}

func LocalRef(id string) Ref  { return Ref{kind: RefLocal, id: id} }
func RemoteRef(id string) Ref { return Ref{kind: RefRemote, id: id} }

// ParseRef decides the identifier space from the id's shape.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, fmt.Errorf("%w: empty snippet id", ErrInvalidInput)
	}
	if strings.HasPrefix(s, LocalIDPrefix) {
		return LocalRef(s), nil
	}
	return RemoteRef(s), nil
}

func (r Ref) Kind() RefKind    { return r.kind }
func (r Ref) ID() string       { return r.id }
func (r Ref) IsLocal() bool    { return r.kind == RefLocal }
func (r Ref) IsRemote() bool   { return r.kind == RefRemote }
func (r Ref) IsZero() bool     { return r.kind == 0 }
func (r Ref) String() string   { return r.id }
func (r Ref) Equal(o Ref) bool { return r.kind == o.kind && r.id == o.id }

func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.id), nil
}

func (r *Ref) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = Ref{}
		return nil
	}
	parsed, err := ParseRef(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

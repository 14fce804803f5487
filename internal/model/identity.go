package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IdentityKind tells how a query is looked up in the telemetry stores.
type IdentityKind int

const (
	KindID IdentityKind = iota
	KindText
)

func (k IdentityKind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("IdentityKind(%d)", int(k))
	}
}

// Identity names the query to profile, either by execution ID or by its exact SQL text.
type Identity struct {
	Kind  IdentityKind
	Value string
}

// ByID identifies a query by the ID the warehouse assigned to its execution.
func ByID(id string) Identity {
	return Identity{Kind: KindID, Value: id}
}

// ByText identifies a query by its SQL text. The text is matched verbatim.
func ByText(sql string) Identity {
	return Identity{Kind: KindText, Value: sql}
}

// Validate rejects identities that cannot be looked up.
func (i Identity) Validate() error {
	switch i.Kind {
	case KindID, KindText:
	default:
		return fmt.Errorf("%w: unknown identity kind %d", ErrInvalidCriterion, int(i.Kind))
	}
	if strings.TrimSpace(i.Value) == "" {
		return fmt.Errorf("%w: empty query %s", ErrInvalidCriterion, i.Kind)
	}
	return nil
}

func (i Identity) String() string {
	if i.Kind == KindID {
		return "id " + i.Value
	}
	return "sql " + strings.Join(strings.Fields(i.Value), " ")
}

type identityJSON struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(identityJSON{Kind: i.Kind.String(), Value: i.Value})
}

func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw identityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case "id":
		*i = ByID(raw.Value)
	case "text":
		*i = ByText(raw.Value)
	default:
		return fmt.Errorf("identity: unknown kind %q", raw.Kind)
	}
	return nil
}

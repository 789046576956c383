package sink

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FieldType enumerates the primitive field kinds a schema may declare.
type FieldType int

const (
	FieldUint FieldType = iota
	FieldInt
	FieldText
	FieldEnum
)

// FieldDef is one field of an output schema: a name and a primitive type.
// A schema's field order is fixed at registration and population happens by
// index.
type FieldDef struct {
	Name string
	Type FieldType
}

// Str is a sink-native string. Every Str was validated by NewStr once;
// holding the type proves the conversion already happened.
type Str string

// NewStr converts transient text into a sink-native string. It fails when
// the value is not representable: invalid UTF-8 or an embedded NUL byte.
func NewStr(s string) (Str, error) {
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("string %q is not valid UTF-8", s)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return "", fmt.Errorf("string %q contains a NUL byte", s)
	}
	return Str(s), nil
}

// SchemaID is an opaque handle to a registered schema.
type SchemaID int

// Record is one output record under construction. The common context must be
// set before any payload field; Sink implementations may rely on that order.
type Record interface {
	SetCommonContext(id, eventCount, timer uint64)
	SetUint(field int, v uint64)
	SetInt(field int, v int64)
	SetText(field int, v Str)
	SetEnum(field int, label Str, v int64)
}

// Sink accepts structured trace records and boundary markers. Callers hold
// the register-once contract: RegisterSchema is invoked at most once per
// distinct schema name.
type Sink interface {
	RegisterSchema(name Str, fields []FieldDef) (SchemaID, error)
	NewRecord(schema SchemaID, timestamp uint64) (Record, error)

	// Emit appends a record to the current output batch, in call order.
	Emit(Record) error

	// DiscardedEvents records that count events were lost before the next
	// emitted record.
	DiscardedEvents(count uint64) error

	StreamBegin() error
	StreamEnd() error
	PacketBegin() error
	PacketEnd() error
}

// Package intern memoizes conversions of transient text and event kinds
// into sink-native strings. Each distinct value is converted at most once;
// the cached handle lives as long as the owning converter.
package intern

import (
	"trc2otlp/internal/recorder"
	"trc2otlp/internal/sink"
)

// Strings interns free-form text.
type Strings struct {
	convert func(string) (sink.Str, error)
	entries map[string]sink.Str
}

// NewStrings creates an empty text table backed by sink.NewStr.
func NewStrings() *Strings {
	return &Strings{
		convert: sink.NewStr,
		entries: make(map[string]sink.Str),
	}
}

// Intern returns the sink-native form of v, converting on first sight.
func (s *Strings) Intern(v string) (sink.Str, error) {
	if cached, ok := s.entries[v]; ok {
		return cached, nil
	}
	converted, err := s.convert(v)
	if err != nil {
		return "", err
	}
	s.entries[v] = converted
	return converted, nil
}

// Kinds interns event-kind names. Kept separate from Strings so a kind name
// and identical free-form text do not collide.
type Kinds struct {
	convert func(string) (sink.Str, error)
	entries map[recorder.Kind]sink.Str
}

// NewKinds creates an empty kind table backed by sink.NewStr.
func NewKinds() *Kinds {
	return &Kinds{
		convert: sink.NewStr,
		entries: make(map[recorder.Kind]sink.Str),
	}
}

// Intern returns the sink-native name of k, converting on first sight.
func (k *Kinds) Intern(kind recorder.Kind) (sink.Str, error) {
	if cached, ok := k.entries[kind]; ok {
		return cached, nil
	}
	converted, err := k.convert(kind.String())
	if err != nil {
		return "", err
	}
	k.entries[kind] = converted
	return converted, nil
}

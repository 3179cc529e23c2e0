// Package secret provides a wrapper for sensitive configuration values.
//
// A Secret can travel through the configuration tree and the component
// registry without ever being printed: every textual representation is
// redacted. The only way to obtain the raw value is Reveal, which callers
// are expected to invoke exactly once, at the point of use.
package secret

import "gopkg.in/yaml.v3"

// Redacted is the placeholder emitted for any textual rendering of a Secret.
const Redacted = "**********"

// Secret holds a sensitive string value.
type Secret struct {
	value string
}

// New wraps a raw value in a Secret.
func New(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the raw value. Call at the last possible moment.
func (s Secret) Reveal() string {
	return s.value
}

// IsZero reports whether the secret holds no value.
func (s Secret) IsZero() bool {
	return s.value == ""
}

// String implements fmt.Stringer with a redacted rendering.
func (s Secret) String() string {
	return Redacted
}

// GoString keeps %#v output redacted as well.
func (s Secret) GoString() string {
	return "secret.Secret(" + Redacted + ")"
}

// MarshalJSON always emits the redacted placeholder.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Redacted + `"`), nil
}

// MarshalYAML always emits the redacted placeholder.
func (s Secret) MarshalYAML() (any, error) {
	return Redacted, nil
}

// UnmarshalYAML reads the raw scalar value from a manifest.
func (s *Secret) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.value = raw
	return nil
}

package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
)

// keyRegex splits `item[stage]`. The item part is greedy so ids that contain
// brackets themselves still resolve to the trailing index.
var keyRegex = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

// Parse converts the canonical text form back into a Key.
func Parse(raw string) (Key, error) {
	if raw == "" {
		return Key{}, fmt.Errorf("node key cannot be empty")
	}
	if raw == terminalName {
		return Terminal, nil
	}

	matches := keyRegex.FindStringSubmatch(raw)
	if matches == nil {
		return Key{}, fmt.Errorf("invalid node key format: %q", raw)
	}

	stage, err := strconv.Atoi(matches[2])
	if err != nil {
		// Unreachable due to regex `\d+` unless the index overflows int.
		return Key{}, fmt.Errorf("invalid stage index in %q: %w", raw, err)
	}
	return Key{Item: matches[1], Stage: stage}, nil
}

// MarshalText renders the canonical form so keys serialize as plain strings.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the canonical form.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

package motion

import (
	"fmt"
	"strings"
)

// Key is a direction key
type Key uint8

const (
	KeyUp Key = 1 << iota
	KeyLeft
	KeyDown
	KeyRight
)

// ParseKey maps w/a/s/d (any case) to a Key
func ParseKey(s string) (Key, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w":
		return KeyUp, nil
	case "a":
		return KeyLeft, nil
	case "s":
		return KeyDown, nil
	case "d":
		return KeyRight, nil
	}
	return 0, fmt.Errorf("unknown direction key %q", s)
}

func (k Key) String() string {
	switch k {
	case KeyUp:
		return "w"
	case KeyLeft:
		return "a"
	case KeyDown:
		return "s"
	case KeyRight:
		return "d"
	}
	return "?"
}

// Keys is the set of currently held keys
type Keys uint8

// With returns the set including k
func (ks Keys) With(k Key) Keys { return ks | Keys(k) }

// Without returns the set excluding k
func (ks Keys) Without(k Key) Keys { return ks &^ Keys(k) }

// Has reports whether k is held
func (ks Keys) Has(k Key) bool { return ks&Keys(k) != 0 }

// Empty reports whether no key is held
func (ks Keys) Empty() bool { return ks == 0 }

// String lists the held keys in w, a, s, d order
func (ks Keys) String() string {
	var b strings.Builder
	for _, k := range []Key{KeyUp, KeyLeft, KeyDown, KeyRight} {
		if ks.Has(k) {
			b.WriteString(k.String())
		}
	}
	return b.String()
}

package schema

import "fmt"

// Platform is the island a record was created on.
type Platform string

const (
	Web    Platform = "web"
	Native Platform = "native"
)

// Platforms lists every platform in a stable order.
func Platforms() []Platform {
	return []Platform{Web, Native}
}

// ParsePlatform validates a platform name.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(s); p {
	case Web, Native:
		return p, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// Other returns the opposite island.
func (p Platform) Other() Platform {
	if p == Web {
		return Native
	}
	return Web
}

func (p Platform) Valid() bool {
	return p == Web || p == Native
}

func (p Platform) String() string {
	return string(p)
}

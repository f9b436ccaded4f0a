package cache

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// KeySeparator joins key segments.
const KeySeparator = ":"

// GenerateKeyWithParams joins prefix and params with KeySeparator.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key = fmt.Sprintf("%s%s%v", key, KeySeparator, param)
	}
	return key
}

// BuildPattern creates a pattern matching keys with prefix followed by
// exactly depth more segments.
func BuildPattern(prefix string, depth int) string {
	parts := []string{prefix}
	for i := 0; i < depth; i++ {
		parts = append(parts, "*")
	}
	return strings.Join(parts, KeySeparator)
}

// encode stores strings verbatim and everything else as JSON.
func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(value)
	}
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	default:
		return json.Unmarshal(data, dest)
	}
}

// matchKey applies pattern with '*' confined to one segment.
func matchKey(pattern, key string) bool {
	if strings.Count(pattern, KeySeparator) != strings.Count(key, KeySeparator) {
		return false
	}
	ok, _ := path.Match(pattern, key)
	return ok
}

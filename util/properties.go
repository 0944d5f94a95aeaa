package util

import (
	"github.com/imdario/mergo"
)

// Common properties type.
type PropertiesMap map[string]interface{}

// FillMissingProperties adds keys from fill into properties without
// overriding keys that are already present. Computed properties always
// win over user configured ones.
func FillMissingProperties(properties *PropertiesMap, fill PropertiesMap) {
	if properties == nil || len(fill) == 0 {
		return
	}

	fillMap := map[string]interface{}(fill)
	propertiesMap := map[string]interface{}(*properties)
	// mergo without WithOverride keeps existing keys as is.
	if err := mergo.Merge(&propertiesMap, fillMap); err != nil {
		return
	}
	*properties = propertiesMap
}

// CopyProperties returns a shallow copy. Dispatched events should not
// share property maps with the caller's payload.
func CopyProperties(properties PropertiesMap) PropertiesMap {
	copied := make(PropertiesMap, len(properties))
	for k, v := range properties {
		copied[k] = v
	}
	return copied
}

// IsScalar reports whether the value is allowed as a configured
// custom property value.
func IsScalar(value interface{}) bool {
	switch value.(type) {
	case string, bool, int, int32, int64, uint64, float32, float64, nil:
		return true
	}
	return false
}

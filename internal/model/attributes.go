package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Attributes holds the dynamic key/value pairs of a variant (e.g. color, tip_size).
// Stored as JSON; encoding/json writes map keys in sorted order, which is the
// canonical order the SKU codec relies on as well.
type Attributes map[string]string

func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Attributes) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*a = Attributes{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("attributes: unsupported scan type %T", value)
	}

	out := Attributes{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*a = out
	return nil
}

func (Attributes) GormDataType() string {
	return "json"
}

func (Attributes) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}

// SortedKeys returns the attribute keys in canonical order.
func (a Attributes) SortedKeys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Normalized trims keys and values. Keys are case-sensitive and must match the schema exactly.
func (a Attributes) Normalized() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// ValidateAttributes checks attrs against the ordered set of required keys of a category.
// Every required key must be present with a non-empty value and no other key may appear.
func ValidateAttributes(required []string, attrs Attributes) error {
	verr := NewValidationError()

	allowed := make(map[string]struct{}, len(required))
	for _, key := range required {
		allowed[key] = struct{}{}
		value, ok := attrs[key]
		if !ok {
			verr.Add("attributes."+key, "This attribute is required.")
			continue
		}
		if strings.TrimSpace(value) == "" {
			verr.Add("attributes."+key, "This attribute may not be blank.")
		}
	}

	for _, key := range attrs.SortedKeys() {
		if _, ok := allowed[key]; !ok {
			verr.Add("attributes."+key, fmt.Sprintf("Unknown attribute %q for this category.", key))
		}
	}

	return verr.OrNil()
}

// ValidateSchema checks that a category's attribute schema is a set of non-empty keys.
func ValidateSchema(keys []string) error {
	verr := NewValidationError()
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			verr.Add("attribute_schema", "Attribute keys may not be blank.")
			continue
		}
		if _, dup := seen[key]; dup {
			verr.Add("attribute_schema", fmt.Sprintf("Duplicate attribute key %q.", key))
			continue
		}
		seen[key] = struct{}{}
	}
	return verr.OrNil()
}

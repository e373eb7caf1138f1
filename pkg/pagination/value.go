package pagination

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Value is a filter operand decoded according to the field's declared type.
// Exactly one of the typed members is meaningful, selected by Type.
type Value struct {
	Type   FieldType
	String string
	Number decimal.Decimal
	Bool   bool
	Time   time.Time
	UUID   uuid.UUID
}

// SQLArg returns the operand in the form bound as a query parameter.
func (v Value) SQLArg() any {
	switch v.Type {
	case FieldTypeNumber:
		return v.Number
	case FieldTypeBoolean:
		return v.Bool
	case FieldTypeDate:
		return v.Time
	case FieldTypeUUID:
		return v.UUID.String()
	default:
		return v.String
	}
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// DecodeValue converts one raw JSON operand into a typed Value.
func DecodeValue(t FieldType, raw any) (Value, error) {
	v := Value{Type: t}
	switch t {
	case FieldTypeString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected string, got %s", describe(raw))
		}
		v.String = s

	case FieldTypeNumber:
		d, err := decodeNumber(raw)
		if err != nil {
			return Value{}, err
		}
		v.Number = d

	case FieldTypeBoolean:
		switch b := raw.(type) {
		case bool:
			v.Bool = b
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return Value{}, fmt.Errorf("expected boolean, got %q", b)
			}
			v.Bool = parsed
		default:
			return Value{}, fmt.Errorf("expected boolean, got %s", describe(raw))
		}

	case FieldTypeDate:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected date string, got %s", describe(raw))
		}
		parsed, err := parseDate(s)
		if err != nil {
			return Value{}, err
		}
		v.Time = parsed

	case FieldTypeUUID:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected uuid string, got %s", describe(raw))
		}
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return Value{}, fmt.Errorf("expected uuid, got %q", s)
		}
		v.UUID = id

	default:
		return Value{}, fmt.Errorf("unsupported field type %q", t)
	}
	return v, nil
}

func decodeNumber(raw any) (decimal.Decimal, error) {
	switch n := raw.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("expected number, got %q", n)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("expected number, got %s", describe(raw))
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("expected RFC3339 date, got %q", s)
}

func describe(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number, float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", raw)
	}
}

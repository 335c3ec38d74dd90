package models

import (
	"database/sql/driver"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// IntList is stored as a JSON array in a TEXT column.
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	return marshalList(l)
}

func (l *IntList) Scan(src interface{}) error {
	return scanList(src, l)
}

// StringList is stored as a JSON array in a TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return marshalList(l)
}

func (l *StringList) Scan(src interface{}) error {
	return scanList(src, l)
}

func marshalList[T any](l []T) (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(b), nil
}

func scanList(src interface{}, dst interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return errors.Errorf("cannot scan %T into a JSON list", src)
	}
	if len(b) == 0 {
		return nil
	}
	return errors.WithStack(json.Unmarshal(b, dst))
}

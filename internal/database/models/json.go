package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Value implements driver.Valuer so JSONMap can be stored as jsonb.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("JSONMap: unsupported Scan source")
		}
	}
	return json.Unmarshal(bytes, m)
}

// JSONList persists a heterogeneous slice as jsonb, used for the stats
// publisher's scheduled/available job listings.
type JSONList []interface{}

func (l JSONList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *JSONList) Scan(value interface{}) error {
	if value == nil {
		*l = JSONList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("JSONList: unsupported Scan source")
		}
	}
	return json.Unmarshal(bytes, l)
}

func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	return json.Marshal(v)
}

func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = Vector{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("Vector: unsupported Scan source")
		}
	}
	return json.Unmarshal(bytes, v)
}

package sqlitestore

import (
	"fmt"
	"math"
	"time"

	json "github.com/goccy/go-json"

	"github.com/patarapolw/tinydb-constraint/internal/docstore"
	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// Value tags used in the stored JSON body.
const (
	tagString   = "str"
	tagInt      = "int"
	tagFloat    = "float"
	tagBool     = "bool"
	tagNull     = "null"
	tagDate     = "date"
	tagDateTime = "datetime"
)

// tagged is one field value as stored in the body column.
type tagged struct {
	T string   `json:"t"`
	S *string  `json:"s,omitempty"`
	I *int64   `json:"i,omitempty"`
	F *float64 `json:"f,omitempty"`
	B *bool    `json:"b,omitempty"`
}

// marshalDocument converts a document to its stored JSON body.
func marshalDocument(doc docstore.Document) (string, error) {
	body := make(map[string]tagged, len(doc))
	for k, v := range doc {
		tv, err := tagValue(v)
		if err != nil {
			return "", fmt.Errorf("marshal field %q: %w", k, err)
		}
		body[k] = tv
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses a stored JSON body.
func unmarshalDocument(data string) (docstore.Document, error) {
	var body map[string]tagged
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	doc := make(docstore.Document, len(body))
	for k, tv := range body {
		v, err := untagValue(tv)
		if err != nil {
			return nil, fmt.Errorf("unmarshal field %q: %w", k, err)
		}
		doc[k] = v
	}
	return doc, nil
}

func tagValue(v any) (tagged, error) {
	switch val := v.(type) {
	case nil:
		return tagged{T: tagNull}, nil
	case string:
		return tagged{T: tagString, S: &val}, nil
	case bool:
		return tagged{T: tagBool, B: &val}, nil
	case int:
		return intTag(int64(val)), nil
	case int8:
		return intTag(int64(val)), nil
	case int16:
		return intTag(int64(val)), nil
	case int32:
		return intTag(int64(val)), nil
	case int64:
		return intTag(val), nil
	case uint8:
		return intTag(int64(val)), nil
	case uint16:
		return intTag(int64(val)), nil
	case uint32:
		return intTag(int64(val)), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return tagged{}, fmt.Errorf("%d overflows int64", val)
		}
		return intTag(int64(val)), nil
	case uint64:
		if val > math.MaxInt64 {
			return tagged{}, fmt.Errorf("%d overflows int64", val)
		}
		return intTag(int64(val)), nil
	case float32:
		return floatTag(float64(val))
	case float64:
		return floatTag(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return intTag(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return tagged{}, fmt.Errorf("invalid number %q", val)
		}
		return floatTag(f)
	case time.Time:
		s := val.Format(time.RFC3339Nano)
		return tagged{T: tagDateTime, S: &s}, nil
	case value.Date:
		s := val.String()
		return tagged{T: tagDate, S: &s}, nil
	default:
		return tagged{}, fmt.Errorf("unsupported value type %T", v)
	}
}

func intTag(i int64) tagged {
	return tagged{T: tagInt, I: &i}
}

func floatTag(f float64) (tagged, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return tagged{}, fmt.Errorf("cannot store %v", f)
	}
	return tagged{T: tagFloat, F: &f}, nil
}

func untagValue(tv tagged) (any, error) {
	switch tv.T {
	case tagNull:
		return nil, nil
	case tagString:
		if tv.S == nil {
			return "", nil
		}
		return *tv.S, nil
	case tagBool:
		return tv.B != nil && *tv.B, nil
	case tagInt:
		if tv.I == nil {
			return int64(0), nil
		}
		return *tv.I, nil
	case tagFloat:
		if tv.F == nil {
			return float64(0), nil
		}
		return *tv.F, nil
	case tagDateTime:
		if tv.S == nil {
			return nil, fmt.Errorf("datetime without value")
		}
		t, err := time.Parse(time.RFC3339Nano, *tv.S)
		if err != nil {
			return nil, fmt.Errorf("parse datetime: %w", err)
		}
		return t, nil
	case tagDate:
		if tv.S == nil {
			return nil, fmt.Errorf("date without value")
		}
		t, err := time.Parse("2006-01-02", *tv.S)
		if err != nil {
			return nil, fmt.Errorf("parse date: %w", err)
		}
		return value.NewDate(t.Year(), t.Month(), t.Day()), nil
	default:
		return nil, fmt.Errorf("unknown value tag %q", tv.T)
	}
}

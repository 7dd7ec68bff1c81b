package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Value type tags stored next to every field so values come back with the
// Go type they went in with.
const (
	tagString = "s"
	tagInt    = "i"
	tagFloat  = "f"
	tagBool   = "b"
	tagList   = "l"
	tagTime   = "t"
	tagNull   = "n"
)

type typedValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

func encodeFields(fields repository.Fields) (string, error) {
	out := make(map[string]typedValue, len(fields))
	for name, v := range fields {
		tv, err := encodeValue(v)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = tv
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encodeValue(v any) (typedValue, error) {
	var (
		tag string
		val any
	)
	switch x := v.(type) {
	case nil:
		return typedValue{T: tagNull}, nil
	case string:
		tag, val = tagString, x
	case int64:
		tag, val = tagInt, x
	case int:
		tag, val = tagInt, int64(x)
	case float64:
		tag, val = tagFloat, x
	case bool:
		tag, val = tagBool, x
	case []string:
		if x == nil {
			x = []string{}
		}
		tag, val = tagList, x
	case time.Time:
		tag, val = tagTime, x.UTC().Format(time.RFC3339Nano)
	default:
		return typedValue{}, fmt.Errorf("%w: unsupported value type %T", repository.ErrInvalidInput, v)
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return typedValue{}, err
	}
	return typedValue{T: tag, V: raw}, nil
}

func decodeFields(data string) (repository.Fields, error) {
	var stored map[string]typedValue
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	out := make(repository.Fields, len(stored))
	for name, tv := range stored {
		v, err := decodeValue(tv)
		if err != nil {
			return nil, fmt.Errorf("decoding field %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func decodeValue(tv typedValue) (any, error) {
	switch tv.T {
	case tagNull:
		return nil, nil
	case tagString:
		var s string
		err := json.Unmarshal(tv.V, &s)
		return s, err
	case tagInt:
		var i int64
		err := json.Unmarshal(tv.V, &i)
		return i, err
	case tagFloat:
		var f float64
		err := json.Unmarshal(tv.V, &f)
		return f, err
	case tagBool:
		var b bool
		err := json.Unmarshal(tv.V, &b)
		return b, err
	case tagList:
		list := []string{}
		err := json.Unmarshal(tv.V, &list)
		return list, err
	case tagTime:
		var s string
		if err := json.Unmarshal(tv.V, &s); err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	return nil, fmt.Errorf("unknown value tag %q", tv.T)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

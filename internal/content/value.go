package content

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
)

// Kind tags the variant stored in a block.
type Kind string

const (
	KindText Kind = "text"
	KindHTML Kind = "html"
	KindJSON Kind = "json"
)

// ErrUnknownKind is returned when a stored or submitted kind is not a Value variant.
var ErrUnknownKind = errors.New("unknown content kind")

// Value is a block's content. It is one of Text, HTML or JSON.
type Value interface {
	Kind() Kind
	sealed()
}

// Text is plain text.
type Text string

// HTML is trusted markup authored by an admin.
type HTML string

// JSON is an arbitrary structured document.
type JSON datatypes.JSON

func (Text) Kind() Kind { return KindText }
func (HTML) Kind() Kind { return KindHTML }
func (JSON) Kind() Kind { return KindJSON }

func (Text) sealed() {}
func (HTML) sealed() {}
func (JSON) sealed() {}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindText, KindHTML, KindJSON:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// DecodeValue builds a Value from an API payload. Text and HTML expect a JSON string;
// JSON accepts any valid document.
func DecodeValue(kind string, raw json.RawMessage) (Value, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, errors.New("value must be valid JSON")
	}

	switch k {
	case KindText, KindHTML:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%s value must be a string", k)
		}
		if k == KindText {
			return Text(s), nil
		}
		return HTML(s), nil
	default:
		return JSON(append([]byte(nil), raw...)), nil
	}
}

// EncodeValue renders a Value as the JSON it is served as.
func EncodeValue(v Value) (json.RawMessage, error) {
	switch val := v.(type) {
	case Text:
		return json.Marshal(string(val))
	case HTML:
		return json.Marshal(string(val))
	case JSON:
		if len(val) == 0 {
			return json.RawMessage("null"), nil
		}
		return json.RawMessage(val), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, v)
	}
}

// emptyData fills the data column for string variants; the column is never NULL.
var emptyData = datatypes.JSON("null")

// columns splits a Value into the persisted kind, text and data columns.
func columns(v Value) (Kind, string, datatypes.JSON, error) {
	switch val := v.(type) {
	case Text:
		return KindText, string(val), emptyData, nil
	case HTML:
		return KindHTML, string(val), emptyData, nil
	case JSON:
		if !json.Valid(val) {
			return "", "", nil, errors.New("json value is not valid JSON")
		}
		return KindJSON, "", datatypes.JSON(val), nil
	default:
		return "", "", nil, fmt.Errorf("%w: %T", ErrUnknownKind, v)
	}
}

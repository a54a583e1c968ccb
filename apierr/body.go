package apierr

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// BodyForm tags which shape an error body took.
type BodyForm int

const (
	// BodyEmpty is an empty or whitespace-only body.
	BodyEmpty BodyForm = iota
	// BodyText is a bare JSON string.
	BodyText
	// BodyMessage is {"message": "..."}.
	BodyMessage
	// BodyError is {"error": "..."} or {"error": {"message": "..."}}.
	BodyError
	// BodyDetail is the Django REST framework {"detail": "..."}.
	BodyDetail
	// BodyErrorsText is {"errors": "..."} or {"errors": ["...", "..."]}.
	BodyErrorsText
	// BodyFieldErrors is {"errors": {field: [msgs]}} or a top-level {field: [msgs]} map.
	BodyFieldErrors
	// BodyUnknown is anything else, including non-JSON payloads.
	BodyUnknown
)

func (f BodyForm) String() string {
	switch f {
	case BodyEmpty:
		return "empty"
	case BodyText:
		return "text"
	case BodyMessage:
		return "message"
	case BodyError:
		return "error"
	case BodyDetail:
		return "detail"
	case BodyErrorsText:
		return "errors_text"
	case BodyFieldErrors:
		return "field_errors"
	default:
		return "unknown"
	}
}

// FieldError holds the messages reported for one input field. Nested
// serializer errors are flattened with dotted field names.
type FieldError struct {
	Field    string
	Messages []string
}

// Body is the parsed error body. Text is set for the single-message forms,
// Fields for BodyFieldErrors. Code carries a top-level "code" string when the
// backend sends one.
type Body struct {
	Form   BodyForm
	Text   string
	Fields []FieldError
	Code   string
}

const nonFieldErrors = "non_field_errors"

// ValidationMessage renders the body as a user-facing message. Field errors
// are joined as "field: msg1, msg2; field2: msg3" in document order.
func (b Body) ValidationMessage() (string, bool) {
	switch b.Form {
	case BodyText, BodyMessage, BodyError, BodyDetail, BodyErrorsText:
		text := strings.TrimSpace(b.Text)
		return text, text != ""
	case BodyFieldErrors:
		parts := make([]string, 0, len(b.Fields))
		for _, f := range b.Fields {
			if len(f.Messages) == 0 {
				continue
			}
			msgs := strings.TrimSpace(strings.Join(f.Messages, ", "))
			if msgs == "" {
				continue
			}
			if f.Field == "" || f.Field == nonFieldErrors {
				parts = append(parts, msgs)
				continue
			}
			parts = append(parts, f.Field+": "+msgs)
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, "; "), true
	default:
		return "", false
	}
}

type member struct {
	key   string
	value json.RawMessage
}

var errNotObject = errors.New("not a json object")

// ParseBody classifies raw into exactly one BodyForm. It never fails; input
// that matches no known shape yields BodyUnknown.
func ParseBody(raw []byte) Body {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Body{Form: BodyEmpty}
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Body{Form: BodyUnknown}
		}
		return Body{Form: BodyText, Text: s}
	case '{':
	default:
		return Body{Form: BodyUnknown}
	}

	members, err := decodeObject(trimmed)
	if err != nil {
		return Body{Form: BodyUnknown}
	}

	out := Body{Form: BodyUnknown}
	index := make(map[string]json.RawMessage, len(members))
	for _, m := range members {
		index[m.key] = m.value
	}
	if code, ok := asString(index["code"]); ok {
		out.Code = code
	}

	if raw, ok := index["errors"]; ok {
		if fields, ok := fieldErrors(raw); ok {
			out.Form = BodyFieldErrors
			out.Fields = fields
			return out
		}
	}
	if text, ok := asString(index["message"]); ok {
		out.Form, out.Text = BodyMessage, text
		return out
	}
	if raw, ok := index["error"]; ok {
		if text, ok := asString(raw); ok {
			out.Form, out.Text = BodyError, text
			return out
		}
		if nested, err := decodeObject(raw); err == nil {
			for _, m := range nested {
				if m.key != "message" {
					continue
				}
				if text, ok := asString(m.value); ok {
					out.Form, out.Text = BodyError, text
					return out
				}
			}
		}
	}
	if text, ok := asString(index["detail"]); ok {
		out.Form, out.Text = BodyDetail, text
		return out
	}
	if raw, ok := index["errors"]; ok {
		if text, ok := asString(raw); ok {
			out.Form, out.Text = BodyErrorsText, text
			return out
		}
		if list, ok := asStringList(raw); ok && len(list) > 0 {
			out.Form, out.Text = BodyErrorsText, strings.Join(list, ", ")
			return out
		}
	}

	// Django serializer errors arrive as a bare field map.
	fields := make([]FieldError, 0, len(members))
	for _, m := range members {
		if m.key == "code" {
			continue
		}
		flat, ok := flattenField(m.key, m.value)
		if !ok {
			return Body{Form: BodyUnknown, Code: out.Code}
		}
		fields = append(fields, flat...)
	}
	if len(fields) == 0 {
		return out
	}
	out.Form = BodyFieldErrors
	out.Fields = fields
	return out
}

func fieldErrors(raw json.RawMessage) ([]FieldError, bool) {
	members, err := decodeObject(raw)
	if err != nil {
		return nil, false
	}
	fields := make([]FieldError, 0, len(members))
	for _, m := range members {
		flat, ok := flattenField(m.key, m.value)
		if !ok {
			return nil, false
		}
		fields = append(fields, flat...)
	}
	return fields, len(fields) > 0
}

func flattenField(name string, raw json.RawMessage) ([]FieldError, bool) {
	if text, ok := asString(raw); ok {
		return []FieldError{{Field: name, Messages: []string{text}}}, true
	}
	if list, ok := asStringList(raw); ok {
		return []FieldError{{Field: name, Messages: list}}, true
	}
	nested, err := decodeObject(raw)
	if err != nil {
		return nil, false
	}
	out := make([]FieldError, 0, len(nested))
	for _, m := range nested {
		flat, ok := flattenField(name+"."+m.key, m.value)
		if !ok {
			return nil, false
		}
		out = append(out, flat...)
	}
	return out, true
}

// decodeObject walks a JSON object keeping member order, which a map decode
// would lose.
func decodeObject(raw json.RawMessage) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	var members []member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errNotObject
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		members = append(members, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errNotObject
	}
	return members, nil
}

func asString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func asStringList(raw json.RawMessage) ([]string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	return list, true
}

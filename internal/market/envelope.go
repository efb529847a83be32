package market

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedDocument flags an envelope the codec cannot make sense of.
var ErrMalformedDocument = errors.New("malformed market document")

// Envelope is a decoded market document: the root document name plus the
// unwrapped body. The dialect wraps scalars in {"value": …} and coded
// identifiers in {"codingScheme": …, "value": …}; both collapse to their
// inner value during decoding. Dotted keys stay literal.
type Envelope struct {
	DocumentName string
	Body         Fields
}

// Fields is an unwrapped JSON object.
type Fields map[string]any

// DecodeEnvelope parses a raw wire document. Numbers are kept exact.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	name, body, err := rootDocument(doc)
	if err != nil {
		return nil, err
	}
	fields, ok := unwrap(body).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: root %q is not an object", ErrMalformedDocument, name)
	}
	return &Envelope{DocumentName: name, Body: Fields(fields)}, nil
}

func rootDocument(doc map[string]any) (string, any, error) {
	names := make([]string, 0, len(doc))
	for k := range doc {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if strings.HasSuffix(k, "_MarketDocument") {
			return k, doc[k], nil
		}
	}
	if len(names) == 1 {
		if _, ok := doc[names[0]].(map[string]any); ok {
			return names[0], doc[names[0]], nil
		}
	}
	return "", nil, fmt.Errorf("%w: no market document root", ErrMalformedDocument)
}

// Members that may accompany "value" inside a wrapper object.
var wrapperAux = map[string]struct{}{
	"codingScheme":         {},
	"unit":                 {},
	"listAgencyIdentifier": {},
}

func unwrap(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if inner, ok := wrapperValue(t); ok {
			return unwrap(inner)
		}
		out := make(map[string]any, len(t))
		for k, m := range t {
			out[k] = unwrap(m)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = unwrap(m)
		}
		return out
	default:
		return v
	}
}

func wrapperValue(m map[string]any) (any, bool) {
	inner, ok := m["value"]
	if !ok {
		return nil, false
	}
	for k := range m {
		if k == "value" {
			continue
		}
		if _, aux := wrapperAux[k]; !aux {
			return nil, false
		}
	}
	return inner, true
}

// String returns the first present key as a string.
func (f Fields) String(keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := f[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t, true
		case json.Number:
			return t.String(), true
		case bool:
			if t {
				return "true", true
			}
			return "false", true
		}
	}
	return "", false
}

// Time parses the first present key with the wire timestamp layouts.
func (f Fields) Time(keys ...string) (time.Time, bool) {
	s, ok := f.String(keys...)
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseWireTime(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Decimal parses the first present key as an exact decimal.
func (f Fields) Decimal(keys ...string) (decimal.Decimal, bool) {
	s, ok := f.String(keys...)
	if !ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Int parses the first present key as an integer.
func (f Fields) Int(keys ...string) (int, bool) {
	d, ok := f.Decimal(keys...)
	if !ok || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}

// Bool accepts JSON booleans and "true"/"false" strings.
func (f Fields) Bool(keys ...string) (bool, bool) {
	for _, key := range keys {
		v, ok := f[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t, true
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true":
				return true, true
			case "false":
				return false, true
			}
		}
	}
	return false, false
}

// Object returns the first present key as nested fields.
func (f Fields) Object(keys ...string) (Fields, bool) {
	for _, key := range keys {
		if m, ok := f[key].(map[string]any); ok {
			return Fields(m), true
		}
	}
	return nil, false
}

// Objects returns the first present key as a slice of objects, accepting
// both the array form and the single-object form.
func (f Fields) Objects(keys ...string) []Fields {
	for _, key := range keys {
		switch t := f[key].(type) {
		case []any:
			out := make([]Fields, 0, len(t))
			for _, m := range t {
				if obj, ok := m.(map[string]any); ok {
					out = append(out, Fields(obj))
				}
			}
			if len(out) > 0 {
				return out
			}
		case map[string]any:
			return []Fields{Fields(t)}
		}
	}
	return nil
}

// MessageID returns the document identifier.
func (e *Envelope) MessageID() (string, bool) {
	return e.Body.String("mRID", "messageId")
}

// ProcessType returns the inner process code, when present.
func (e *Envelope) ProcessType() (string, bool) {
	return e.Body.String("process.processType", "processType")
}

// Sender returns the sending market participant.
func (e *Envelope) Sender() (GLN, bool) {
	return e.participant("sender_MarketParticipant.mRID", "sender")
}

// Receiver returns the addressed market participant.
func (e *Envelope) Receiver() (GLN, bool) {
	return e.participant("receiver_MarketParticipant.mRID", "receiver")
}

func (e *Envelope) participant(keys ...string) (GLN, bool) {
	s, ok := e.Body.String(keys...)
	if !ok {
		return "", false
	}
	gln, err := ParseGLN(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return gln, true
}

// BusinessReason returns the reason code that disambiguates price
// documents, falling back to the process type when it carries one of the
// price codes.
func (e *Envelope) BusinessReason() string {
	if s, ok := e.Body.String("businessReason", "reason.code"); ok {
		return strings.ToUpper(strings.TrimSpace(s))
	}
	if s, ok := e.ProcessType(); ok {
		switch code := strings.ToUpper(strings.TrimSpace(s)); code {
		case ReasonPriceInfo, ReasonPriceSeries, ReasonPriceLink:
			return code
		}
	}
	return ""
}

// Series returns the document's series records under the common keys.
func (e *Envelope) Series() []Fields {
	return e.Body.Objects("Series", "series", "MktActivityRecord", "activityRecords")
}

// IsConfirmation reports whether the document confirms a request.
func (e *Envelope) IsConfirmation() bool {
	return strings.HasPrefix(e.DocumentName, "Confirm")
}

// IsRejection reports whether the document rejects a request.
func (e *Envelope) IsRejection() bool {
	return strings.HasPrefix(e.DocumentName, "Reject")
}

var wireTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02",
}

// ParseWireTime accepts the dialect's timestamp forms, normalized to UTC.
func ParseWireTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

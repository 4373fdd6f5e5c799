package triggers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// firestoreEvent: полезная нагрузка Cloud Functions для триггеров Firestore
// (google.cloud.firestore.document.v1.written и родственные).
type firestoreEvent struct {
	OldValue   firestoreDocument `json:"oldValue"`
	Value      firestoreDocument `json:"value"`
	UpdateMask struct {
		FieldPaths []string `json:"fieldPaths"`
	} `json:"updateMask"`
}

// firestoreDocument - документ в REST-представлении, поля в типизированных обёртках.
type firestoreDocument struct {
	Name       string                    `json:"name"`
	Fields     map[string]firestoreValue `json:"fields"`
	CreateTime string                    `json:"createTime"`
	UpdateTime string                    `json:"updateTime"`
}

func (d firestoreDocument) empty() bool {
	return d.Name == "" && len(d.Fields) == 0
}

// firestoreValue: типизированное значение поля. Заполнено ровно одно из полей.
type firestoreValue struct {
	StringValue    *string  `json:"stringValue,omitempty"`
	IntegerValue   *string  `json:"integerValue,omitempty"`
	DoubleValue    *float64 `json:"doubleValue,omitempty"`
	BooleanValue   *bool    `json:"booleanValue,omitempty"`
	TimestampValue *string  `json:"timestampValue,omitempty"`
	ReferenceValue *string  `json:"referenceValue,omitempty"`
	BytesValue     *string  `json:"bytesValue,omitempty"`
	NullValue      *string  `json:"nullValue,omitempty"`
	GeoPointValue  *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"geoPointValue,omitempty"`
	MapValue *struct {
		Fields map[string]firestoreValue `json:"fields"`
	} `json:"mapValue,omitempty"`
	ArrayValue *struct {
		Values []firestoreValue `json:"values"`
	} `json:"arrayValue,omitempty"`
}

// plain переводит типизированное значение в обычное JSON-значение.
// integerValue приходит строкой (int64 в JSON), timestamp остаётся строкой RFC 3339.
func (v firestoreValue) plain() (any, error) {
	switch {
	case v.StringValue != nil:
		return *v.StringValue, nil
	case v.IntegerValue != nil:
		n, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("integerValue %q: %w", *v.IntegerValue, err)
		}
		return n, nil
	case v.DoubleValue != nil:
		return *v.DoubleValue, nil
	case v.BooleanValue != nil:
		return *v.BooleanValue, nil
	case v.TimestampValue != nil:
		return *v.TimestampValue, nil
	case v.ReferenceValue != nil:
		return *v.ReferenceValue, nil
	case v.BytesValue != nil:
		return *v.BytesValue, nil
	case v.GeoPointValue != nil:
		return map[string]any{
			"latitude":  v.GeoPointValue.Latitude,
			"longitude": v.GeoPointValue.Longitude,
		}, nil
	case v.MapValue != nil:
		return plainFields(v.MapValue.Fields)
	case v.ArrayValue != nil:
		out := make([]any, 0, len(v.ArrayValue.Values))
		for i, item := range v.ArrayValue.Values {
			p, err := item.plain()
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, p)
		}
		return out, nil
	default:
		// nullValue или пустая обёртка.
		return nil, nil
	}
}

func plainFields(fields map[string]firestoreValue) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		p, err := v.plain()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = p
	}

	return out, nil
}

// toDocument переводит документ Firestore в JSONDocument; пустой документ: nil.
func (d firestoreDocument) toDocument() (Document, error) {
	if d.empty() {
		return nil, nil
	}

	fields, err := plainFields(d.Fields)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	return JSONDocument(raw), nil
}

// splitName достаёт коллекцию и id документа из полного имени
// projects/{p}/databases/{db}/documents/{collection}/{id}.
func splitName(name string) (collection, id string) {
	parts := strings.Split(strings.Trim(name, "/"), "/")
	if len(parts) < 2 {
		return "", ""
	}

	return parts[len(parts)-2], parts[len(parts)-1]
}

// DecodeFirestoreEvent разбирает событие триггера Firestore.
// Вид изменения определяется по наличию снимков: только value даёт created,
// оба дают updated, только oldValue даёт deleted. collection, если задан, должен совпадать
// с коллекцией из имени документа.
func DecodeFirestoreEvent(collection string, data []byte) (Change, error) {
	const op = "triggers/firestore/DecodeFirestoreEvent"

	var ev firestoreEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return Change{}, fmt.Errorf("%s: %w: %v", op, ErrBadChange, err)
	}

	var ch Change
	switch {
	case ev.OldValue.empty() && !ev.Value.empty():
		ch.Kind = KindCreated
	case !ev.OldValue.empty() && !ev.Value.empty():
		ch.Kind = KindUpdated
	case !ev.OldValue.empty():
		ch.Kind = KindDeleted
	default:
		return Change{}, fmt.Errorf("%s: %w: no snapshots", op, ErrBadChange)
	}

	name := ev.Value.Name
	if name == "" {
		name = ev.OldValue.Name
	}
	ch.Collection, ch.DocumentID = splitName(name)

	if collection != "" && ch.Collection != "" && collection != ch.Collection {
		return Change{}, fmt.Errorf("%s: %w: document %q is not in %q", op, ErrBadChange, name, collection)
	}
	if ch.Collection == "" {
		ch.Collection = collection
	}

	var err error
	if ch.Before, err = ev.OldValue.toDocument(); err != nil {
		return Change{}, fmt.Errorf("%s: %w: oldValue.%v", op, ErrBadChange, err)
	}
	if ch.After, err = ev.Value.toDocument(); err != nil {
		return Change{}, fmt.Errorf("%s: %w: value.%v", op, ErrBadChange, err)
	}

	if err := validate(ch); err != nil {
		return Change{}, fmt.Errorf("%s: %w", op, err)
	}

	return ch, nil
}

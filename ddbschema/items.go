package ddbschema

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Format is the encoding of sample items.
type Format string

const (
	// FormatDynamoDB is DynamoDB JSON: every value wrapped in its type tag,
	// as in {"pk":{"S":"a"}}. Objects of the form {"Item":{...}} are unwrapped.
	FormatDynamoDB Format = "dynamodb"
	// FormatJSON is plain JSON, converted the way the SDK marshals Go maps.
	FormatJSON Format = "json"
)

// ReadItems decodes a stream of items. The stream holds JSON objects, one
// after the other, or arrays of them.
func ReadItems(r io.Reader, format Format) ([]Item, error) {
	var decode func(json.RawMessage) (Item, error)
	switch format {
	case FormatDynamoDB:
		decode = ParseDynamoJSON
	case FormatJSON:
		decode = parsePlainJSON
	default:
		return nil, fmt.Errorf("unknown item format %q", format)
	}

	dec := json.NewDecoder(r)
	var items []Item
	for n := 0; ; n++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); errors.Is(err, io.EOF) {
			return items, nil
		} else if err != nil {
			return nil, fmt.Errorf("read value %d: %w", n, err)
		}

		values := []json.RawMessage{raw}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
			values = nil
			if err := json.Unmarshal(raw, &values); err != nil {
				return nil, fmt.Errorf("read value %d: %w", n, err)
			}
		}
		for _, v := range values {
			item, err := decode(v)
			if err != nil {
				return nil, fmt.Errorf("read value %d: %w", n, err)
			}
			items = append(items, item)
		}
	}
}

func parsePlainJSON(raw json.RawMessage) (Item, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return attributevalue.MarshalMap(m)
}

// ParseDynamoJSON decodes one item in DynamoDB JSON. An object whose only
// key is "Item" is a GetItem style wrapper unless its value is itself a type
// tagged attribute value, in which case it is an item with one attribute
// named Item.
func ParseDynamoJSON(raw json.RawMessage) (Item, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if inner, ok := m["Item"]; ok && len(m) == 1 {
		if _, err := parseAttributeValue(inner); err != nil {
			return parseMap(inner)
		}
	}
	return decodeMap(m)
}

func parseMap(raw json.RawMessage) (Item, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return decodeMap(m)
}

func decodeMap(m map[string]json.RawMessage) (Item, error) {
	item := make(Item, len(m))
	for name, v := range m {
		av, err := parseAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		item[name] = av
	}
	return item, nil
}

func parseAttributeValue(raw json.RawMessage) (types.AttributeValue, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, err
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("attribute value must have exactly one type tag, got %d", len(tagged))
	}

	for tag, v := range tagged {
		return decodeTagged(tag, v)
	}
	return nil, fmt.Errorf("attribute value has no type tag")
}

func decodeTagged(tag string, v json.RawMessage) (types.AttributeValue, error) {
	switch tag {
	case "S":
		var s string
		err := json.Unmarshal(v, &s)
		return &types.AttributeValueMemberS{Value: s}, err
	case "N":
		var s string
		err := json.Unmarshal(v, &s)
		return &types.AttributeValueMemberN{Value: s}, err
	case "B":
		b, err := decodeBinary(v)
		return &types.AttributeValueMemberB{Value: b}, err
	case "BOOL":
		var b bool
		err := json.Unmarshal(v, &b)
		return &types.AttributeValueMemberBOOL{Value: b}, err
	case "NULL":
		var b bool
		err := json.Unmarshal(v, &b)
		return &types.AttributeValueMemberNULL{Value: b}, err
	case "SS":
		var ss []string
		err := json.Unmarshal(v, &ss)
		return &types.AttributeValueMemberSS{Value: ss}, err
	case "NS":
		var ns []string
		err := json.Unmarshal(v, &ns)
		return &types.AttributeValueMemberNS{Value: ns}, err
	case "BS":
		var encoded []json.RawMessage
		if err := json.Unmarshal(v, &encoded); err != nil {
			return nil, err
		}
		bs := make([][]byte, len(encoded))
		for i, e := range encoded {
			b, err := decodeBinary(e)
			if err != nil {
				return nil, err
			}
			bs[i] = b
		}
		return &types.AttributeValueMemberBS{Value: bs}, nil
	case "M":
		m, err := parseMap(v)
		return &types.AttributeValueMemberM{Value: m}, err
	case "L":
		var elems []json.RawMessage
		if err := json.Unmarshal(v, &elems); err != nil {
			return nil, err
		}
		l := make([]types.AttributeValue, len(elems))
		for i, e := range elems {
			av, err := parseAttributeValue(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l[i] = av
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	default:
		return nil, fmt.Errorf("unknown type tag %q", tag)
	}
}

func decodeBinary(raw json.RawMessage) ([]byte, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(s)
}

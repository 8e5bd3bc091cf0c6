package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

type nodeKind int

const (
	kindNull nodeKind = iota
	kindObject
	kindList
	kindString
	kindScalar
)

// node is the format independent shape of a decoded document. Objects keep
// their keys in source order.
type node struct {
	kind   nodeKind
	str    string
	keys   []string
	values []node
	items  []node
}

// text returns the string form of a scalar node.
func (n node) text() (string, bool) {
	switch n.kind {
	case kindString, kindScalar:
		return n.str, true
	default:
		return "", false
	}
}

func decodeJSON(data []byte) (node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := readJSON(dec)
	if err != nil {
		return node{}, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return node{}, errors.New("unexpected data after top-level value")
	}
	return root, nil
}

func readJSON(dec *json.Decoder) (node, error) {
	tok, err := dec.Token()
	if err != nil {
		return node{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := node{kind: kindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return node{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return node{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				value, err := readJSON(dec)
				if err != nil {
					return node{}, err
				}
				n.keys = append(n.keys, key)
				n.values = append(n.values, value)
			}
			if _, err := dec.Token(); err != nil {
				return node{}, err
			}
			return n, nil
		case '[':
			n := node{kind: kindList}
			for dec.More() {
				item, err := readJSON(dec)
				if err != nil {
					return node{}, err
				}
				n.items = append(n.items, item)
			}
			if _, err := dec.Token(); err != nil {
				return node{}, err
			}
			return n, nil
		}
		return node{}, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return node{kind: kindString, str: t}, nil
	case json.Number:
		return node{kind: kindScalar, str: t.String()}, nil
	case bool:
		return node{kind: kindScalar, str: strconv.FormatBool(t)}, nil
	case nil:
		return node{kind: kindNull}, nil
	}
	return node{}, fmt.Errorf("unexpected token %v", tok)
}

func decodeYAML(data []byte) (node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return node{}, err
	}
	if doc.Kind == 0 {
		return node{}, errors.New("empty document")
	}
	return fromYAML(&doc), nil
}

func fromYAML(y *yaml.Node) node {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return node{kind: kindNull}
		}
		return fromYAML(y.Content[0])
	case yaml.AliasNode:
		if y.Alias == nil {
			return node{kind: kindNull}
		}
		return fromYAML(y.Alias)
	case yaml.MappingNode:
		n := node{kind: kindObject}
		for i := 0; i+1 < len(y.Content); i += 2 {
			n.keys = append(n.keys, y.Content[i].Value)
			n.values = append(n.values, fromYAML(y.Content[i+1]))
		}
		return n
	case yaml.SequenceNode:
		n := node{kind: kindList}
		for _, c := range y.Content {
			n.items = append(n.items, fromYAML(c))
		}
		return n
	case yaml.ScalarNode:
		switch y.ShortTag() {
		case "!!str":
			return node{kind: kindString, str: y.Value}
		case "!!null":
			return node{kind: kindNull}
		default:
			return node{kind: kindScalar, str: y.Value}
		}
	}
	return node{kind: kindNull}
}

// Package preset reads the curated answer table from a JSON or YAML file
// while keeping the source order of every menu.
package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/workvisa/internal/domain"
	dompreset "github.com/kailas-cloud/workvisa/internal/domain/preset"
)

// Load reads and parses the preset table at path.
func Load(path string) (dompreset.Table, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return dompreset.Table{}, fmt.Errorf("%w: read %s: %w", domain.ErrMalformedPreset, path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return dompreset.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse builds a table from JSON or YAML. JSON input goes through encoding/json
// so every JSON escape is honored; both formats end up as the same node tree.
func Parse(data []byte) (dompreset.Table, error) {
	root, err := decodeDocument(data)
	if err != nil {
		return dompreset.Table{}, err
	}
	if root.Kind != yaml.MappingNode {
		return dompreset.Table{}, &domain.MalformedPresetError{Line: root.Line, Reason: "top level must be an object"}
	}

	menu, err := parseMenu(root, nil)
	if err != nil {
		return dompreset.Table{}, err
	}
	return dompreset.NewTable(menu), nil
}

func decodeDocument(data []byte) (*yaml.Node, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return decodeJSON(data)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &domain.MalformedPresetError{Reason: err.Error()}
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	return root, nil
}

// decodeJSON walks the token stream, which keeps object keys in source order.
func decodeJSON(data []byte) (*yaml.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := jsonValue(dec, data)
	if err != nil {
		return nil, &domain.MalformedPresetError{Line: lineAt(data, dec.InputOffset()), Reason: err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &domain.MalformedPresetError{
			Line:   lineAt(data, dec.InputOffset()),
			Reason: "unexpected data after the top-level value",
		}
	}
	return root, nil
}

func jsonValue(dec *json.Decoder, data []byte) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	line := lineAt(data, dec.InputOffset())

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: line}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key %v is not a string", kt)
				}
				k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key, Line: lineAt(data, dec.InputOffset())}
				v, err := jsonValue(dec, data)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, k, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Line: line}
			for dec.More() {
				v, err := jsonValue(dec, data)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t, Line: line}, nil
	case json.Number:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: t.String(), Line: line}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(t), Line: line}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Line: line}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// lineAt returns the 1-based line of the byte just before offset.
func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	if offset > 0 {
		offset--
	}
	return bytes.Count(data[:offset], []byte("\n")) + 1
}

func parseMenu(n *yaml.Node, path []string) (*dompreset.Menu, error) {
	m := dompreset.NewMenu()
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := resolve(n.Content[i]), n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, malformed(path, k, "question label must be a string")
		}
		childPath := append(append([]string(nil), path...), k.Value)

		child, err := parseNode(v, childPath)
		if err != nil {
			return nil, err
		}
		if err := m.Add(k.Value, child); err != nil {
			return nil, malformed(path, k, err.Error())
		}
	}
	return m, nil
}

func parseNode(n *yaml.Node, path []string) (dompreset.Node, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return dompreset.Leaf(""), nil
		}
		return dompreset.Leaf(n.Value), nil
	case yaml.MappingNode:
		m, err := parseMenu(n, path)
		if err != nil {
			return dompreset.Node{}, err
		}
		return dompreset.MenuNode(m), nil
	case yaml.SequenceNode:
		return parseSequence(n, path)
	default:
		return dompreset.Node{}, malformed(path, n, "unsupported value")
	}
}

// parseSequence accepts either all scalars (paragraphs) or all mappings (center records).
func parseSequence(n *yaml.Node, path []string) (dompreset.Node, error) {
	if len(n.Content) == 0 {
		return dompreset.List(nil), nil
	}

	switch resolve(n.Content[0]).Kind {
	case yaml.ScalarNode:
		items := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolve(item)
			if item.Kind != yaml.ScalarNode {
				return dompreset.Node{}, malformed(path, item, "list mixes text and records")
			}
			items = append(items, item.Value)
		}
		return dompreset.List(items), nil
	case yaml.MappingNode:
		centers := make([]dompreset.Center, 0, len(n.Content))
		for _, item := range n.Content {
			c, err := parseCenter(resolve(item), path)
			if err != nil {
				return dompreset.Node{}, err
			}
			centers = append(centers, c)
		}
		return dompreset.Centers(centers), nil
	default:
		return dompreset.Node{}, malformed(path, n.Content[0], "nested lists are not supported")
	}
}

func parseCenter(n *yaml.Node, path []string) (dompreset.Center, error) {
	if n.Kind != yaml.MappingNode {
		return dompreset.Center{}, malformed(path, n, "list mixes text and records")
	}

	fields := make(map[string]string, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := resolve(n.Content[i]), resolve(n.Content[i+1])
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return dompreset.Center{}, malformed(path, k, "center record fields must be strings")
		}
		fields[k.Value] = v.Value
	}
	if fields["name"] == "" {
		return dompreset.Center{}, malformed(path, n, "center record requires a name")
	}

	return dompreset.Center{
		Name:    fields["name"],
		Address: fields["address"],
		Phone:   fields["phone"],
		URL:     fields["url"],
	}, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func malformed(path []string, n *yaml.Node, reason string) error {
	return &domain.MalformedPresetError{Path: path, Line: n.Line, Reason: reason}
}

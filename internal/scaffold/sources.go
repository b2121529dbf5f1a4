package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lectern/internal/registry"
)

// appendRecord adds rec to the end of the sources file at path, creating the
// file if needed. The file is edited as a YAML node tree so comments and key
// order survive. rec must keep the registry valid.
func appendRecord(path string, rec registry.PageRecord) error {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	existing, err := registry.Parse(data)
	if err != nil {
		return fmt.Errorf("sources file %s: %w", path, err)
	}
	if _, err := registry.New(append(existing.Records(), rec)); err != nil {
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("sources file %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("sources file %s: top level is not a mapping", path)
	}

	pages := pagesNode(root)
	pages.Content = append(pages.Content, recordNode(rec))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// pagesNode returns the sequence under the "pages" key, creating it (or
// replacing an empty value) as needed.
func pagesNode(root *yaml.Node) *yaml.Node {
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "pages" {
			continue
		}
		v := root.Content[i+1]
		if v.Kind != yaml.SequenceNode {
			*v = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		}
		return v
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "pages"}, seq)
	return seq
}

func recordNode(rec registry.PageRecord) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, kv := range [][2]string{
		{registry.FieldPathName, rec.PathName},
		{registry.FieldPageTitle, rec.PageTitle},
		{registry.FieldNamedIdentifier, rec.NamedIdentifier},
	} {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kv[0]},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kv[1]},
		)
	}
	return n
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vigil-dev/vigil/internal/errors"
)

// UpsertHost adds a host entry to the config file at path, or replaces
// the entry with the same name. The file is edited as a YAML node tree so
// comments and unrelated sections survive; a missing file is created.
func UpsertHost(path string, h Host) error {
	if err := validateHost(h); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Fix the host entry and try again")
	}

	root, err := readTree(path)
	if err != nil {
		return err
	}
	doc := root.Content[0]

	hostsNode := findMapValue(doc, "hosts")
	if hostsNode == nil {
		hostsNode = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "hosts"},
			hostsNode)
	}
	if hostsNode.Kind != yaml.SequenceNode {
		return errors.New(errors.ErrConfig,
			"The 'hosts' section isn't a list",
			"Check the YAML in "+path)
	}

	entry := &yaml.Node{}
	if err := entry.Encode(h); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Could not encode the host entry", "")
	}

	replaced := false
	for i, item := range hostsNode.Content {
		if entryName(item) == h.Name {
			hostsNode.Content[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		hostsNode.Content = append(hostsNode.Content, entry)
	}

	return writeTree(path, root)
}

// RemoveHost deletes the named entry from the config file at path. The
// bool reports whether the entry existed; a missing file or missing hosts
// section just means there was nothing to remove.
func RemoveHost(path, name string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}

	root, err := readTree(path)
	if err != nil {
		return false, err
	}
	doc := root.Content[0]

	hostsNode := findMapValue(doc, "hosts")
	if hostsNode == nil || hostsNode.Kind != yaml.SequenceNode {
		return false, nil
	}

	for i, item := range hostsNode.Content {
		if entryName(item) == name {
			hostsNode.Content = append(hostsNode.Content[:i], hostsNode.Content[i+1:]...)
			return true, writeTree(path, root)
		}
	}
	return false, nil
}

// readTree parses path into a YAML document node, synthesizing an empty
// document when the file is missing or blank.
func readTree(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file", "Check permissions on "+path)
	}

	var root yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to parse config file",
				"Check that "+path+" is valid YAML")
		}
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{Kind: yaml.MappingNode, Tag: "!!map"},
			},
		}
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New(errors.ErrConfig,
			"Config file isn't a YAML mapping",
			"Check the structure of "+path)
	}
	return &root, nil
}

// writeTree renders the node tree back to path, creating parent
// directories as needed.
func writeTree(path string, root *yaml.Node) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Could not create config directory", "Check permissions on "+dir)
		}
	}

	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to encode config", "")
	}
	if err := enc.Close(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to encode config", "")
	}

	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file", "Check permissions on "+path)
	}
	return nil
}

// entryName pulls the name field out of one host mapping node.
func entryName(item *yaml.Node) string {
	n := findMapValue(item, "name")
	if n == nil {
		return ""
	}
	return n.Value
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Kind == yaml.ScalarNode && node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// Describe renders one host entry for `vigil host list`.
func Describe(h Host) string {
	parts := []string{h.String()}
	if h.Auth != "" {
		parts = append(parts, "auth: "+h.Auth)
	}
	if h.KeyFile != "" {
		parts = append(parts, "key: "+h.KeyFile)
	}
	if h.Transport != "" && h.Transport != TransportSSH {
		parts = append(parts, "transport: "+h.Transport)
	}
	return fmt.Sprintf("%-16s %s", h.Name, strings.Join(parts, "  "))
}

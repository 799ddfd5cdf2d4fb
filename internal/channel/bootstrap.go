package channel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/remowork/soundswap/internal/domain"
)

// Bootstrap node identity.
const (
	BootstrapNodeID   = "remowork-sound-config"
	BootstrapDataAttr = "data-sound-config"
)

// ErrNoBootstrap means the document carries no bootstrap node.
var ErrNoBootstrap = errors.New("bootstrap node not found")

// bootstrapNode builds the hidden node carrying cfg.
func bootstrapNode(cfg domain.ResolvedSoundConfig) (*html.Node, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr: []html.Attribute{
			{Key: "id", Val: BootstrapNodeID},
			{Key: "hidden"},
			{Key: BootstrapDataAttr, Val: string(data)},
		},
	}, nil
}

// RenderBootstrap renders the bootstrap node as an HTML fragment.
func RenderBootstrap(cfg domain.ResolvedSoundConfig) (string, error) {
	node, err := bootstrapNode(cfg)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return "", fmt.Errorf("render bootstrap node: %w", err)
	}
	return buf.String(), nil
}

// InjectBootstrap returns doc with the bootstrap node inserted as the first
// child of <head>, ahead of every page script. An existing node is replaced.
func InjectBootstrap(doc string, cfg domain.ResolvedSoundConfig) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	if old := findBootstrap(root); old != nil && old.Parent != nil {
		old.Parent.RemoveChild(old)
	}

	head := findElement(root, atom.Head)
	if head == nil {
		return "", errors.New("document has no head")
	}

	node, err := bootstrapNode(cfg)
	if err != nil {
		return "", err
	}
	head.InsertBefore(node, head.FirstChild)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return buf.String(), nil
}

// ReadBootstrap parses doc and decodes the configuration carried by its
// bootstrap node.
func ReadBootstrap(doc string) (domain.ResolvedSoundConfig, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return domain.ResolvedSoundConfig{}, fmt.Errorf("parse document: %w", err)
	}

	node := findBootstrap(root)
	if node == nil {
		return domain.ResolvedSoundConfig{}, ErrNoBootstrap
	}

	for _, a := range node.Attr {
		if a.Key != BootstrapDataAttr {
			continue
		}
		var cfg domain.ResolvedSoundConfig
		if err := json.Unmarshal([]byte(a.Val), &cfg); err != nil {
			return domain.ResolvedSoundConfig{}, fmt.Errorf("decode bootstrap config: %w", err)
		}
		if cfg.Sounds == nil {
			cfg.Sounds = make(map[domain.SoundID]domain.ResolvedSound)
		}
		return cfg, nil
	}
	return domain.ResolvedSoundConfig{}, fmt.Errorf("bootstrap node has no %s attribute", BootstrapDataAttr)
}

func findBootstrap(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == BootstrapNodeID {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findBootstrap(c); found != nil {
			return found
		}
	}
	return nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

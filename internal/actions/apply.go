package actions

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/platform/apierr"
)

// ParseWire strictly validates one wire-shaped action record for
// apply. Unlike Normalize it fails loudly: an unknown type or a
// missing required field aborts the whole apply before any mutation.
func ParseWire(raw map[string]any) (Action, error) {
	kindName, _ := raw["type"].(string)
	kind := Kind(strings.TrimSpace(kindName))
	if !Allowed(kind) {
		return nil, apierr.Validationf("Action type '%s' is not allowed", kindName)
	}
	action, ok := Normalize(raw)
	if !ok {
		return nil, apierr.Validationf("Action '%s' is missing required fields", kindName)
	}
	return action, nil
}

// ParseWireList validates a whole list; any invalid record fails the
// list.
func ParseWireList(raw []map[string]any) ([]Action, error) {
	actions := make([]Action, 0, len(raw))
	for _, record := range raw {
		action, err := ParseWire(record)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// Apply performs the in-order mutations on target and returns the
// changed aspects (title, description, language, blocks), de-duplicated
// in first-change order. The action list must already be validated.
func Apply(target *content.Object, actions []Action) []string {
	var changed []string
	seen := map[string]bool{}
	record := func(aspect string) {
		if !seen[aspect] {
			seen[aspect] = true
			changed = append(changed, aspect)
		}
	}

	for _, action := range actions {
		switch a := action.(type) {
		case UpdateTitle:
			target.Title = a.Title
			record("title")
		case UpdateDescription:
			target.Description = a.Description
			record("description")
		case UpdateLanguage:
			target.Language = a.Language
			record("language")
		case InsertText:
			insertBlock(target, buildTextBlock(a.Text, detectTextBlockType(target)))
			record("blocks")
		case InsertHeading:
			insertBlock(target, buildHeadingBlock(a.Text, a.Level))
			record("blocks")
		case InsertList:
			insertBlock(target, buildListBlock(a.Items, a.Ordered))
			record("blocks")
		case InsertQuote:
			insertBlock(target, buildQuoteBlock(a.Text, a.Citation))
			record("blocks")
		case InsertImage:
			insertBlock(target, buildImageBlock(a))
			record("blocks")
		}
	}
	return changed
}

// detectTextBlockType checks whether existing blocks use the slate or
// the plain text convention. New pages get slate.
func detectTextBlockType(target *content.Object) string {
	for _, block := range target.Blocks {
		if t, ok := block["@type"].(string); ok && (t == "slate" || t == "text") {
			return t
		}
	}
	return "slate"
}

func buildTextBlock(text, blockType string) map[string]any {
	if blockType == "text" {
		return map[string]any{"@type": "text", "text": fmt.Sprintf("<p>%s</p>", text)}
	}
	return map[string]any{
		"@type":     "slate",
		"plaintext": text,
		"value": []any{
			map[string]any{"type": "p", "children": []any{map[string]any{"text": text}}},
		},
	}
}

func buildHeadingBlock(text string, level int) map[string]any {
	return map[string]any{
		"@type":     "slate",
		"plaintext": text,
		"value": []any{
			map[string]any{
				"type":     fmt.Sprintf("h%d", clampLevel(level)),
				"children": []any{map[string]any{"text": text}},
			},
		},
	}
}

func buildListBlock(items []string, ordered bool) map[string]any {
	listType := "ul"
	if ordered {
		listType = "ol"
	}
	children := make([]any, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		children = append(children, map[string]any{
			"type":     "li",
			"children": []any{map[string]any{"text": strings.TrimSpace(item)}},
		})
	}
	return map[string]any{
		"@type":     "slate",
		"plaintext": strings.Join(items, " "),
		"value": []any{
			map[string]any{"type": listType, "children": children},
		},
	}
}

func buildQuoteBlock(text, citation string) map[string]any {
	value := []any{
		map[string]any{"type": "blockquote", "children": []any{map[string]any{"text": text}}},
	}
	if strings.TrimSpace(citation) != "" {
		value = append(value, map[string]any{
			"type":     "p",
			"children": []any{map[string]any{"text": "— " + strings.TrimSpace(citation)}},
		})
	}
	return map[string]any{"@type": "slate", "plaintext": text, "value": value}
}

func buildImageBlock(a InsertImage) map[string]any {
	block := map[string]any{
		"@type":       "image",
		"url":         a.URL,
		"image_field": a.ImageField,
	}
	if a.Scale != "" {
		block["scale"] = a.Scale
		block["size"] = a.Scale
	}
	if a.Alt != "" {
		block["alt"] = a.Alt
	}
	if a.Caption != "" {
		block["caption"] = a.Caption
	}
	return block
}

// insertBlock appends the block under a fresh id and records it in the
// block order.
func insertBlock(target *content.Object, block map[string]any) {
	if target.Blocks == nil {
		target.Blocks = map[string]map[string]any{}
	}
	blockID := uuid.NewString()
	target.Blocks[blockID] = block
	target.BlockOrder = append(target.BlockOrder, blockID)
}

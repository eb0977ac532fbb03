package actions

import (
	"reflect"
	"testing"
)

func TestNormalizeHeadingLevelInference(t *testing.T) {
	cases := []struct {
		name      string
		raw       map[string]any
		wantText  string
		wantLevel int
	}{
		{
			name:      "embedded h3 marker",
			raw:       map[string]any{"type": "insert_heading_block", "payload": map[string]any{"text": "Heading h3"}},
			wantText:  "Heading",
			wantLevel: 3,
		},
		{
			name:      "explicit level wins",
			raw:       map[string]any{"type": "insert_heading_block", "payload": map[string]any{"text": "Intro", "level": float64(4)}},
			wantText:  "Intro",
			wantLevel: 4,
		},
		{
			name:      "level clamped to range",
			raw:       map[string]any{"type": "insert_heading_block", "payload": map[string]any{"text": "Intro", "level": float64(9)}},
			wantText:  "Intro",
			wantLevel: 6,
		},
		{
			name:      "default level 2",
			raw:       map[string]any{"type": "insert_heading_block", "payload": map[string]any{"text": "Plain heading"}},
			wantText:  "Plain heading",
			wantLevel: 2,
		},
		{
			name:      "ordinal heading mention",
			raw:       map[string]any{"type": "insert_heading_block", "payload": map[string]any{"text": "3rd heading About us"}},
			wantText:  "3rd heading About us",
			wantLevel: 3,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, ok := Normalize(tc.raw)
			if !ok {
				t.Fatalf("Normalize failed")
			}
			heading, ok := action.(InsertHeading)
			if !ok {
				t.Fatalf("got %T, want InsertHeading", action)
			}
			if heading.Text != tc.wantText || heading.Level != tc.wantLevel {
				t.Fatalf("got {%q, %d}, want {%q, %d}", heading.Text, heading.Level, tc.wantText, tc.wantLevel)
			}
		})
	}
}

func TestNormalizeListSplitting(t *testing.T) {
	cases := []struct {
		name        string
		raw         map[string]any
		wantItems   []string
		wantOrdered bool
	}{
		{
			name:        "numbered markers",
			raw:         map[string]any{"type": "insert_list_block", "payload": map[string]any{"text": "1. First 2. Second"}},
			wantItems:   []string{"First", "Second"},
			wantOrdered: true,
		},
		{
			name:        "semicolon separated",
			raw:         map[string]any{"type": "insert_list_block", "payload": map[string]any{"text": "apples; pears; plums"}},
			wantItems:   []string{"apples", "pears", "plums"},
			wantOrdered: false,
		},
		{
			name:        "bullet prefixes stripped",
			raw:         map[string]any{"type": "insert_list_block", "payload": map[string]any{"items": []any{"- one", "* two", "3) three"}}},
			wantItems:   []string{"one", "two", "three"},
			wantOrdered: true,
		},
		{
			name:        "explicit ordered flag",
			raw:         map[string]any{"type": "insert_list_block", "payload": map[string]any{"items": []any{"a", "b"}, "ordered": true}},
			wantItems:   []string{"a", "b"},
			wantOrdered: true,
		},
		{
			name:        "ordered keyword german",
			raw:         map[string]any{"type": "insert_list_block", "payload": map[string]any{"text": "nummeriert: eins; zwei"}},
			wantItems:   []string{"nummeriert: eins", "zwei"},
			wantOrdered: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, ok := Normalize(tc.raw)
			if !ok {
				t.Fatalf("Normalize failed")
			}
			list, ok := action.(InsertList)
			if !ok {
				t.Fatalf("got %T, want InsertList", action)
			}
			if !reflect.DeepEqual(list.Items, tc.wantItems) {
				t.Fatalf("items = %v, want %v", list.Items, tc.wantItems)
			}
			if list.Ordered != tc.wantOrdered {
				t.Fatalf("ordered = %v, want %v", list.Ordered, tc.wantOrdered)
			}
		})
	}
}

func TestNormalizeImageReferenceForms(t *testing.T) {
	uid := "0123456789abcdef0123456789abcdef"
	cases := []struct {
		name      string
		raw       map[string]any
		wantURL   string
		wantField string
		wantScale string
	}{
		{
			name:      "bare uuid becomes resolveuid with large scale",
			raw:       map[string]any{"type": "insert_image_block", "payload": map[string]any{"url": uid}},
			wantURL:   "resolveuid/" + uid,
			wantField: "image",
			wantScale: "large",
		},
		{
			name:      "uid key",
			raw:       map[string]any{"type": "insert_image_block", "payload": map[string]any{"uid": uid}},
			wantURL:   "resolveuid/" + uid,
			wantField: "image",
			wantScale: "large",
		},
		{
			name:      "resolveuid link kept",
			raw:       map[string]any{"type": "insert_image_block", "payload": map[string]any{"url": "resolveuid/" + uid}},
			wantURL:   "resolveuid/" + uid,
			wantField: "image",
			wantScale: "large",
		},
		{
			name:      "images scale url extracts field and scale",
			raw:       map[string]any{"type": "insert_image_block", "payload": map[string]any{"url": "http://site/pic/@@images/lead/preview"}},
			wantURL:   "http://site/pic/@@images/lead/preview",
			wantField: "lead",
			wantScale: "preview",
		},
		{
			name:      "plain external url without scale",
			raw:       map[string]any{"type": "insert_image_block", "payload": map[string]any{"url": "https://example.org/pic.png"}},
			wantURL:   "https://example.org/pic.png",
			wantField: "image",
			wantScale: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, ok := Normalize(tc.raw)
			if !ok {
				t.Fatalf("Normalize failed")
			}
			image, ok := action.(InsertImage)
			if !ok {
				t.Fatalf("got %T, want InsertImage", action)
			}
			if image.URL != tc.wantURL || image.ImageField != tc.wantField || image.Scale != tc.wantScale {
				t.Fatalf("got {%q %q %q}, want {%q %q %q}",
					image.URL, image.ImageField, image.Scale, tc.wantURL, tc.wantField, tc.wantScale)
			}
		})
	}
}

func TestNormalizeImageReferenceIdempotent(t *testing.T) {
	uid := "0123456789abcdef0123456789abcdef"
	inputs := []map[string]any{
		{"type": "insert_image_block", "payload": map[string]any{"url": uid}},
		{"type": "insert_image_block", "payload": map[string]any{"url": "resolveuid/" + uid}},
		{"type": "insert_image_block", "payload": map[string]any{"url": "http://site/pic/@@images/image/large"}},
		{"type": "insert_image_block", "payload": map[string]any{"url": "https://example.org/pic.png"}},
	}
	for _, raw := range inputs {
		first, ok := Normalize(raw)
		if !ok {
			t.Fatalf("Normalize failed for %v", raw)
		}
		second, ok := Normalize(Wire(first))
		if !ok {
			t.Fatalf("re-normalize failed for %v", Wire(first))
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("normalization not idempotent: %v != %v", first, second)
		}
	}
}

func TestNormalizeSynonymsAndDrops(t *testing.T) {
	if action, ok := Normalize(map[string]any{"type": "add_heading", "payload": map[string]any{"text": "News"}}); !ok || action.Kind() != KindInsertHeading {
		t.Fatalf("synonym add_heading not canonicalized: %v %v", action, ok)
	}
	if _, ok := Normalize(map[string]any{"type": "delete_everything", "payload": map[string]any{}}); ok {
		t.Fatalf("disallowed type must be dropped")
	}
	if _, ok := Normalize(map[string]any{"type": "update_title", "payload": map[string]any{"title": "   "}}); ok {
		t.Fatalf("blank title must be dropped")
	}
}

func TestDeriveFromPatterns(t *testing.T) {
	actions := DeriveFromPatterns(`Set the title to "New Landing Page" and add a list: alpha; beta; gamma`)
	var gotTitle, gotList bool
	for _, action := range actions {
		switch a := action.(type) {
		case UpdateTitle:
			gotTitle = true
			if a.Title != "New Landing Page" {
				t.Fatalf("title = %q", a.Title)
			}
		case InsertList:
			gotList = true
			if len(a.Items) != 3 || a.Items[0] != "alpha" {
				t.Fatalf("items = %v", a.Items)
			}
		}
	}
	if !gotTitle || !gotList {
		t.Fatalf("actions = %v, want title and list", actions)
	}
}

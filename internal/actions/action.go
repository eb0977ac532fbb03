// Package actions turns free-form editing goals into a bounded
// vocabulary of structured content mutations, previews them and
// applies them under an allow-list.
package actions

// Kind is one allowed action type. The set is closed; anything outside
// it is rejected at apply time and silently dropped at plan time.
type Kind string

const (
	KindUpdateTitle       Kind = "update_title"
	KindUpdateDescription Kind = "update_description"
	KindUpdateLanguage    Kind = "update_language"
	KindInsertText        Kind = "insert_text_block"
	KindInsertHeading     Kind = "insert_heading_block"
	KindInsertList        Kind = "insert_list_block"
	KindInsertQuote       Kind = "insert_quote_block"
	KindInsertImage       Kind = "insert_image_block"
)

var allowlist = map[Kind]bool{
	KindUpdateTitle:       true,
	KindUpdateDescription: true,
	KindUpdateLanguage:    true,
	KindInsertText:        true,
	KindInsertHeading:     true,
	KindInsertList:        true,
	KindInsertQuote:       true,
	KindInsertImage:       true,
}

// Allowed reports whether kind is on the allow-list.
func Allowed(kind Kind) bool { return allowlist[kind] }

// Action is a closed tagged union. Instances exist only in normalized
// form; raw input that fails normalization never becomes an Action.
type Action interface {
	Kind() Kind
	// wirePayload renders the payload half of the wire shape
	// {"type": ..., "payload": {...}}.
	wirePayload() map[string]any
}

type UpdateTitle struct {
	Title string
}

func (UpdateTitle) Kind() Kind { return KindUpdateTitle }
func (a UpdateTitle) wirePayload() map[string]any {
	return map[string]any{"title": a.Title}
}

type UpdateDescription struct {
	Description string
}

func (UpdateDescription) Kind() Kind { return KindUpdateDescription }
func (a UpdateDescription) wirePayload() map[string]any {
	return map[string]any{"description": a.Description}
}

type UpdateLanguage struct {
	Language string
}

func (UpdateLanguage) Kind() Kind { return KindUpdateLanguage }
func (a UpdateLanguage) wirePayload() map[string]any {
	return map[string]any{"language": a.Language}
}

type InsertText struct {
	Text string
}

func (InsertText) Kind() Kind { return KindInsertText }
func (a InsertText) wirePayload() map[string]any {
	return map[string]any{"text": a.Text}
}

type InsertHeading struct {
	Text  string
	Level int
}

func (InsertHeading) Kind() Kind { return KindInsertHeading }
func (a InsertHeading) wirePayload() map[string]any {
	return map[string]any{"text": a.Text, "level": a.Level}
}

type InsertList struct {
	Items   []string
	Ordered bool
}

func (InsertList) Kind() Kind { return KindInsertList }
func (a InsertList) wirePayload() map[string]any {
	items := make([]any, len(a.Items))
	for i, item := range a.Items {
		items[i] = item
	}
	return map[string]any{"items": items, "ordered": a.Ordered}
}

type InsertQuote struct {
	Text     string
	Citation string
}

func (InsertQuote) Kind() Kind { return KindInsertQuote }
func (a InsertQuote) wirePayload() map[string]any {
	payload := map[string]any{"text": a.Text}
	if a.Citation != "" {
		payload["citation"] = a.Citation
	}
	return payload
}

type InsertImage struct {
	URL        string
	ImageField string
	Scale      string
	Alt        string
	Caption    string
}

func (InsertImage) Kind() Kind { return KindInsertImage }
func (a InsertImage) wirePayload() map[string]any {
	payload := map[string]any{"url": a.URL, "image_field": a.ImageField}
	if a.Scale != "" {
		payload["scale"] = a.Scale
	}
	if a.Alt != "" {
		payload["alt"] = a.Alt
	}
	if a.Caption != "" {
		payload["caption"] = a.Caption
	}
	return payload
}

// Wire renders one action in the wire shape.
func Wire(a Action) map[string]any {
	return map[string]any{"type": string(a.Kind()), "payload": a.wirePayload()}
}

// WireList renders a whole action list.
func WireList(actions []Action) []map[string]any {
	out := make([]map[string]any, 0, len(actions))
	for _, a := range actions {
		out = append(out, Wire(a))
	}
	return out
}

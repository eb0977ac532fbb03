// Package content models the hosting CMS as a set of consumed
// interfaces. The backend never owns content persistence; it resolves,
// reads and mutates objects through these contracts.
package content

import "strings"

// Object is one addressable content item. Blocks is the structured
// body: a map of block id to an open block record, ordered by
// BlockOrder. Annotations carries attached state owned by this
// backend (action plans, the audit log).
type Object struct {
	UID         string
	Path        string
	URL         string
	Title       string
	Description string
	Language    string
	Blocks      map[string]map[string]any
	BlockOrder  []string
	Position    int
	Annotations map[string]any
}

// Annotation returns the annotation stored under key, if any.
func (o *Object) Annotation(key string) (any, bool) {
	if o == nil || o.Annotations == nil {
		return nil, false
	}
	v, ok := o.Annotations[key]
	return v, ok
}

// SetAnnotation attaches value to the object under key.
func (o *Object) SetAnnotation(key string, value any) {
	if o.Annotations == nil {
		o.Annotations = map[string]any{}
	}
	o.Annotations[key] = value
}

// Store is the CMS content collaborator.
type Store interface {
	// Root returns the site root. Always non-nil.
	Root() *Object
	ByUID(uid string) (*Object, bool)
	// ByPath resolves a path relative to the site root.
	ByPath(path string) (*Object, bool)
	// TopLevelSections returns the root's direct children in
	// position order.
	TopLevelSections() []*Object
	// Reindex notifies the CMS search index that obj changed.
	Reindex(obj *Object) error
}

// Hit is one ranked full-text search result.
type Hit struct {
	UID         string
	Title       string
	URL         string
	Description string
	Score       float64
}

// Searcher is the full-text search collaborator. Hits arrive ranked
// by the CMS (effectiveness/recency); scores pass through untouched.
type Searcher interface {
	Search(text string, limit int) []Hit
}

// Identity describes the caller as established by the transport
// layer. A zero Identity is anonymous.
type Identity struct {
	UserID string
	Roles  []string
}

func (id Identity) Anonymous() bool { return strings.TrimSpace(id.UserID) == "" }

func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Authorizer answers edit-permission questions for an identity on an
// object.
type Authorizer interface {
	CanEdit(id Identity, obj *Object) bool
}

// RoleEditor is the role the default authorizer requires for content
// mutation.
const RoleEditor = "editor"

// RoleAuthorizer grants edit permission to authenticated callers
// holding the editor role.
type RoleAuthorizer struct{}

func (RoleAuthorizer) CanEdit(id Identity, obj *Object) bool {
	return !id.Anonymous() && obj != nil && id.HasRole(RoleEditor)
}

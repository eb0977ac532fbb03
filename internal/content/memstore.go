package content

import (
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store/Searcher used by the dev server and
// the tests. Search scoring is a plain term-match count; ordering is
// score then most-recently-reindexed, which stands in for the CMS
// catalog's effectiveness/recency sort.
type MemStore struct {
	mu      sync.RWMutex
	root    *Object
	byUID   map[string]*Object
	byPath  map[string]*Object
	order   []string
	indexed map[string]int
	tick    int
}

func NewMemStore(root *Object) *MemStore {
	if root == nil {
		root = &Object{UID: "site-root", Path: "", URL: "/", Title: "Site"}
	}
	s := &MemStore{
		root:    root,
		byUID:   map[string]*Object{},
		byPath:  map[string]*Object{},
		indexed: map[string]int{},
	}
	s.addLocked(root)
	return s
}

func (s *MemStore) Add(obj *Object) {
	if obj == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(obj)
}

func (s *MemStore) addLocked(obj *Object) {
	if obj.UID != "" {
		if _, seen := s.byUID[obj.UID]; !seen {
			s.order = append(s.order, obj.UID)
		}
		s.byUID[obj.UID] = obj
		s.tick++
		s.indexed[obj.UID] = s.tick
	}
	s.byPath[normalizePath(obj.Path)] = obj
}

func (s *MemStore) Root() *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

func (s *MemStore) ByUID(uid string) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.byUID[uid]
	return obj, ok
}

func (s *MemStore) ByPath(path string) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.byPath[normalizePath(path)]
	return obj, ok
}

func (s *MemStore) TopLevelSections() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sections []*Object
	for _, uid := range s.order {
		obj := s.byUID[uid]
		if obj == nil || obj == s.root {
			continue
		}
		if isTopLevel(obj.Path) {
			sections = append(sections, obj)
		}
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Position < sections[j].Position
	})
	return sections
}

func (s *MemStore) Reindex(obj *Object) error {
	if obj == nil || obj.UID == "" {
		return nil
	}
	s.mu.Lock()
	s.tick++
	s.indexed[obj.UID] = s.tick
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Search(text string, limit int) []Hit {
	terms := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(terms) == 0 || limit <= 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		hit     Hit
		indexed int
	}
	var results []scored
	for _, uid := range s.order {
		obj := s.byUID[uid]
		if obj == nil {
			continue
		}
		haystack := strings.ToLower(obj.Title + " " + obj.Description + " " + flattenBlocks(obj))
		matches := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		results = append(results, scored{
			hit: Hit{
				UID:         obj.UID,
				Title:       obj.Title,
				URL:         obj.URL,
				Description: obj.Description,
				Score:       float64(matches) / float64(len(terms)),
			},
			indexed: s.indexed[uid],
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].hit.Score != results[j].hit.Score {
			return results[i].hit.Score > results[j].hit.Score
		}
		return results[i].indexed > results[j].indexed
	})
	if len(results) > limit {
		results = results[:limit]
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, r.hit)
	}
	return hits
}

func flattenBlocks(obj *Object) string {
	var parts []string
	for _, id := range obj.BlockOrder {
		block := obj.Blocks[id]
		for _, v := range block {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

func normalizePath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}

func isTopLevel(path string) bool {
	p := normalizePath(path)
	return p != "" && !strings.Contains(p, "/")
}

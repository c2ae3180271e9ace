package catalog

import (
	"context"
	"sort"

	"github.com/noah-isme/backend-souq/internal/db"
)

// MaxCategoryDepth caps the rendered tree. Categories nested deeper than
// this are dropped from the tree rather than flattened.
const MaxCategoryDepth = 3

// CategoryNode is one node of the rendered category tree.
type CategoryNode struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Children []*CategoryNode `json:"children,omitempty"`
}

// BuildCategoryTree assembles flat category rows into a tree. All nodes are
// allocated up front and linked through a parent index, so the build is a
// single pass regardless of nesting. Roots and siblings come out
// name-sorted.
func BuildCategoryTree(cats []db.Category) []*CategoryNode {
	nodes := make(map[string]*CategoryNode, len(cats))
	parentOf := make(map[string]string, len(cats))
	for _, c := range cats {
		id := db.UUIDString(c.ID)
		nodes[id] = &CategoryNode{ID: id, Name: c.Name}
		if c.ParentID.Valid {
			parentOf[id] = db.UUIDString(c.ParentID)
		}
	}

	var roots []*CategoryNode
	for id, node := range nodes {
		parentID, hasParent := parentOf[id]
		if !hasParent {
			roots = append(roots, node)
			continue
		}
		if depthOf(id, parentOf) > MaxCategoryDepth {
			continue
		}
		if parent, ok := nodes[parentID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			// orphaned parent reference, surface the node at the root
			roots = append(roots, node)
		}
	}

	sortTree(roots)
	return roots
}

// depthOf walks the parent chain; a root node has depth 1. Cycles, which the
// schema forbids but a bad import could introduce, terminate at the cap.
func depthOf(id string, parentOf map[string]string) int {
	depth := 1
	for {
		parent, ok := parentOf[id]
		if !ok {
			return depth
		}
		depth++
		if depth > MaxCategoryDepth {
			return depth
		}
		id = parent
	}
}

func sortTree(nodes []*CategoryNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for _, n := range nodes {
		sortTree(n.Children)
	}
}

// CategoryTree loads all categories and renders them as a tree.
func (s *Service) CategoryTree(ctx context.Context) ([]*CategoryNode, error) {
	cats, err := s.Q.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return BuildCategoryTree(cats), nil
}
